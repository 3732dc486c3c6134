package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/stats"
)

// =============================================================================
// STATISTICS ENDPOINTS
// =============================================================================
//
// Query parameters (all optional except year):
//   unit                month | quarter | year | first_half | second_half
//   year, month, quarter
//   groupBy             product | store | neighborhood | kind (default)
//   filterProduct, filterStore, filterNeighborhood
//   top                 keep the N rows with the highest revenue
//
// Legacy Spanish names are accepted for unit and groupBy values.

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetStatistics returns the rows of one grouping dimension.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatisticsQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	res, err := h.Stats.Statistics(r.Context(), q)
	if err != nil {
		h.writeStatsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsResponse(res))
}

// GetOverview returns the period totals shown on the dashboard.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	pq, err := parsePeriodQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	res, err := h.Stats.Overview(r.Context(), pq)
	if err != nil {
		h.writeStatsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewDTO(res))
}

// ExportStatistics streams the statistics rows as an xlsx workbook. The
// workbook is built in memory first so failures still produce JSON errors.
func (h *Handler) ExportStatistics(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatisticsQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	var buf bytes.Buffer
	if err := h.Stats.Export(r.Context(), q, &buf); err != nil {
		h.writeStatsError(w, err)
		return
	}

	period := ledger.ResolvePeriod(q.Period)
	filename := fmt.Sprintf("statistics-%s-%s.xlsx", q.GroupBy, period.Start)
	if q.GroupBy == "" {
		filename = fmt.Sprintf("statistics-%s-%s.xlsx", stats.DimKind, period.Start)
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// writeStatsError maps statistics failures. An inconsistent ledger is a
// server-side data problem and surfaces as 500 with the replay message.
func (h *Handler) writeStatsError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case ledger.IsInconsistent(err):
		writeError(w, http.StatusInternalServerError, "Ledger is inconsistent", err)
	default:
		h.Logger.Error().Err(err).Msg("statistics request failed")
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics", err)
	}
}

// ===== QUERY PARSING =====

func parseStatisticsQuery(v url.Values) (stats.StatisticsQuery, error) {
	pq, err := parsePeriodQuery(v)
	if err != nil {
		return stats.StatisticsQuery{}, err
	}
	top, err := optionalInt(v, "top")
	if err != nil {
		return stats.StatisticsQuery{}, err
	}
	if top < 0 {
		return stats.StatisticsQuery{}, fmt.Errorf(`parameter "top" must not be negative`)
	}

	q := stats.StatisticsQuery{
		Period: pq,
		Top:    top,
		Filters: stats.Filters{
			Product:      ledger.ProductID(strings.TrimSpace(v.Get("filterProduct"))),
			Store:        ledger.StoreID(strings.TrimSpace(v.Get("filterStore"))),
			Neighborhood: ledger.NeighborhoodID(strings.TrimSpace(v.Get("filterNeighborhood"))),
		},
	}
	if g := v.Get("groupBy"); g != "" {
		q.GroupBy = stats.ParseDimension(g)
	}
	return q, nil
}

// parsePeriodQuery reads unit/year/month/quarter. A missing year is left
// for PeriodQuery.Validate so every caller reports it the same way.
func parsePeriodQuery(v url.Values) (ledger.PeriodQuery, error) {
	year, err := optionalInt(v, "year")
	if err != nil {
		return ledger.PeriodQuery{}, err
	}
	month, err := optionalInt(v, "month")
	if err != nil {
		return ledger.PeriodQuery{}, err
	}
	quarter, err := optionalInt(v, "quarter")
	if err != nil {
		return ledger.PeriodQuery{}, err
	}
	return ledger.PeriodQuery{
		Unit:    ledger.ParsePeriodUnit(v.Get("unit")),
		Year:    year,
		Month:   month,
		Quarter: quarter,
	}, nil
}

func optionalInt(v url.Values, name string) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	return n, nil
}
