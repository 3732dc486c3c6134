/*
Package stats implements the period statistics engine.

PURPOSE:
  Replays the movement ledger up to the end of a reporting period and
  aggregates units, revenue, cost and profit for the movements that fall
  inside the period, grouped by product, store, neighborhood and kind.

PIPELINE:
  ledger.ListMovements(period.End)  full history, (date, seq) order
        │
        ▼
  Engine.Apply (replay.go)          running stock + unit cost per product,
        │                           fail-fast on inconsistent ledger
        ▼
  Accumulator (this file)           rows keyed by (dimension, key)
        │
        ▼
  Hydrator (labels.go)              display names for row keys
        │
        ▼
  Service (service.go)              statistics / overview / export

KEY CONCEPTS IN THIS FILE (accumulator.go):
  - Dimension: how rows are grouped
  - Figures: the summed amounts carried by every row
  - Accumulator: rows created lazily on first delta, insertion ordered

SEE ALSO:
  - replay.go: Produces the deltas
  - service.go: Request orchestration
*/
package stats

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSION - How aggregation rows are grouped
// =============================================================================

type Dimension string

const (
	DimProduct      Dimension = "product"
	DimStore        Dimension = "store"
	DimNeighborhood Dimension = "neighborhood"
	DimKind         Dimension = "kind"
)

var dimensionAliases = map[string]Dimension{
	"product":      DimProduct,
	"producto":     DimProduct,
	"store":        DimStore,
	"comercio":     DimStore,
	"neighborhood": DimNeighborhood,
	"barrio":       DimNeighborhood,
	"kind":         DimKind,
	"tipo":         DimKind,
}

// ParseDimension maps wire names to a Dimension. Empty or unknown names
// group by movement kind.
func ParseDimension(s string) Dimension {
	if d, ok := dimensionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d
	}
	return DimKind
}

// =============================================================================
// FIGURES - Amounts summed into every row
// =============================================================================

// Figures is both a delta emitted by the replay and the running sums of a
// row. Zero-valued decimals are valid zeros.
type Figures struct {
	PhysicalUnits     decimal.Decimal `json:"physicalUnits"`
	Revenue           decimal.Decimal `json:"revenue"`
	Cost              decimal.Decimal `json:"cost"`
	RealizedProfit    decimal.Decimal `json:"realizedProfit"`
	GenuineProfit     decimal.Decimal `json:"genuineProfit"`
	RevaluationProfit decimal.Decimal `json:"revaluationProfit"`
}

// Add returns the field-wise sum.
func (f Figures) Add(d Figures) Figures {
	return Figures{
		PhysicalUnits:     f.PhysicalUnits.Add(d.PhysicalUnits),
		Revenue:           f.Revenue.Add(d.Revenue),
		Cost:              f.Cost.Add(d.Cost),
		RealizedProfit:    f.RealizedProfit.Add(d.RealizedProfit),
		GenuineProfit:     f.GenuineProfit.Add(d.GenuineProfit),
		RevaluationProfit: f.RevaluationProfit.Add(d.RevaluationProfit),
	}
}

// =============================================================================
// ROWS
// =============================================================================

// RowKey addresses one row. A value type, so keys from different
// dimensions never collide.
type RowKey struct {
	Dimension Dimension
	Key       string
}

type Row struct {
	Dimension Dimension `json:"groupBy"`
	Key       string    `json:"key"`
	Figures
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator merges deltas into rows by pure addition. It never divides
// and never resets; Rows preserves first-insertion order so repeated
// computations over the same ledger produce identical output.
type Accumulator struct {
	rows  map[RowKey]*Row
	order []RowKey
}

func NewAccumulator() *Accumulator {
	return &Accumulator{rows: make(map[RowKey]*Row)}
}

// Add merges d into the (dim, key) row. An empty key is ignored, e.g. the
// neighborhood of a store that has none.
func (a *Accumulator) Add(dim Dimension, key string, d Figures) {
	if key == "" {
		return
	}
	k := RowKey{Dimension: dim, Key: key}
	row, ok := a.rows[k]
	if !ok {
		row = &Row{Dimension: dim, Key: key}
		a.rows[k] = row
		a.order = append(a.order, k)
	}
	row.Figures = row.Figures.Add(d)
}

// Get returns the row for (dim, key).
func (a *Accumulator) Get(dim Dimension, key string) (Row, bool) {
	row, ok := a.rows[RowKey{Dimension: dim, Key: key}]
	if !ok {
		return Row{}, false
	}
	return *row, true
}

// Rows returns the rows of one dimension in insertion order.
func (a *Accumulator) Rows(dim Dimension) []Row {
	out := []Row{}
	for _, k := range a.order {
		if k.Dimension == dim {
			out = append(out, *a.rows[k])
		}
	}
	return out
}

// AllRows returns every row in insertion order.
func (a *Accumulator) AllRows() []Row {
	out := make([]Row, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.rows[k])
	}
	return out
}

// Totals sums every row of every dimension together. A sale counted in its
// product, store, neighborhood and kind rows contributes four times; the
// overview report is defined this way.
func (a *Accumulator) Totals() Figures {
	var total Figures
	for _, k := range a.order {
		total = total.Add(a.rows[k].Figures)
	}
	return total
}
