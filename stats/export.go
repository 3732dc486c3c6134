package stats

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SPREADSHEET EXPORT
// =============================================================================

const exportSheet = "Statistics"

var exportHeader = []string{
	"Key", "Name", "Physical units", "Revenue", "Cost",
	"Realized profit", "Genuine profit", "Revaluation profit",
}

// WriteWorkbook renders a statistics result as an xlsx workbook: a title
// row with the period and grouping, a header row, then one row per result
// row.
func WriteWorkbook(w io.Writer, res *StatisticsResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	title := fmt.Sprintf("%s %s by %s", res.Period.Unit, res.Period, res.GroupBy)
	if err := f.SetCellValue(exportSheet, "A1", title); err != nil {
		return err
	}
	if err := writeRow(f, 2, toCells(exportHeader)); err != nil {
		return err
	}

	for i, row := range res.Rows {
		cells := []any{
			row.Key,
			row.Label.Name,
			row.PhysicalUnits.InexactFloat64(),
			row.Revenue.InexactFloat64(),
			row.Cost.InexactFloat64(),
			row.RealizedProfit.InexactFloat64(),
			row.GenuineProfit.InexactFloat64(),
			row.RevaluationProfit.InexactFloat64(),
		}
		if err := writeRow(f, i+3, cells); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, rowNum int, cells []any) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
