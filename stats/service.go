package stats

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// QUERIES AND RESULTS
// =============================================================================

type StatisticsQuery struct {
	Period  ledger.PeriodQuery
	GroupBy Dimension
	Filters Filters

	// Top keeps the N rows with the highest revenue when > 0.
	Top int
}

type LabeledRow struct {
	Row
	Label Label `json:"label"`
}

type StatisticsResult struct {
	Period  ledger.Period `json:"period"`
	GroupBy Dimension     `json:"groupBy"`
	Rows    []LabeledRow  `json:"rows"`
}

// OverviewResult carries the sums of every row of every dimension.
type OverviewResult struct {
	Period ledger.Period `json:"period"`
	Figures
}

// =============================================================================
// SERVICE
// =============================================================================

// Service answers statistics requests. Each request replays the ledger
// from scratch into fresh state, so concurrent requests share nothing but
// the store and the cache.
type Service struct {
	movements ledger.MovementStore
	labels    Hydrator
	cache     ResultCache
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewService(movements ledger.MovementStore, labels Hydrator) *Service {
	return &Service{
		movements: movements,
		labels:    labels,
		logger:    log.Logger,
	}
}

// WithCache enables result caching.
func (s *Service) WithCache(c ResultCache) *Service {
	s.cache = c
	return s
}

// WithTimeout bounds each computation. Zero means no bound beyond the
// caller's context.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

func (s *Service) WithLogger(l zerolog.Logger) *Service {
	s.logger = l
	return s
}

// Statistics computes the rows of one grouping dimension for a period.
func (s *Service) Statistics(ctx context.Context, q StatisticsQuery) (*StatisticsResult, error) {
	if err := q.Period.Validate(); err != nil {
		return nil, err
	}
	if q.GroupBy == "" {
		q.GroupBy = DimKind
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.cacheKey(ctx, "statistics", q)
	var cached StatisticsResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	period := ledger.ResolvePeriod(q.Period)
	acc, err := s.replay(ctx, period, q.Filters)
	if err != nil {
		return nil, err
	}

	rows := TopByRevenue(acc.Rows(q.GroupBy), q.Top)
	labeled, err := s.hydrate(ctx, q.GroupBy, rows)
	if err != nil {
		return nil, err
	}

	res := &StatisticsResult{Period: period, GroupBy: q.GroupBy, Rows: labeled}
	s.cacheSet(ctx, key, res)
	return res, nil
}

// Overview sums every row across all dimensions for a period.
func (s *Service) Overview(ctx context.Context, q ledger.PeriodQuery) (*OverviewResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.cacheKey(ctx, "overview", StatisticsQuery{Period: q})
	var cached OverviewResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	period := ledger.ResolvePeriod(q)
	acc, err := s.replay(ctx, period, Filters{})
	if err != nil {
		return nil, err
	}

	res := &OverviewResult{Period: period, Figures: acc.Totals()}
	s.cacheSet(ctx, key, res)
	return res, nil
}

// Export writes the statistics rows of q as an xlsx workbook.
func (s *Service) Export(ctx context.Context, q StatisticsQuery, w io.Writer) error {
	res, err := s.Statistics(ctx, q)
	if err != nil {
		return err
	}
	return WriteWorkbook(w, res)
}

// TopByRevenue returns the n rows with the highest revenue, keeping the
// original order between equal revenues. n <= 0 returns rows unchanged.
func TopByRevenue(rows []Row, n int) []Row {
	if n <= 0 {
		return rows
	}
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// ===== INTERNAL =====

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) replay(ctx context.Context, period ledger.Period, filters Filters) (*Accumulator, error) {
	movements, err := s.movements.ListMovements(ctx, period.End)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	acc, err := Replay(ctx, movements, period, filters)
	if err != nil {
		if ledger.IsInconsistent(err) {
			s.logger.Error().Err(err).Str("period", period.String()).Msg("statistics replay failed")
		}
		return nil, err
	}

	s.logger.Debug().
		Str("period", period.String()).
		Int("movements", len(movements)).
		Msg("statistics computed")
	return acc, nil
}

func (s *Service) hydrate(ctx context.Context, dim Dimension, rows []Row) ([]LabeledRow, error) {
	out := make([]LabeledRow, len(rows))
	for i, r := range rows {
		out[i] = LabeledRow{Row: r}
	}
	if s.labels == nil || len(rows) == 0 {
		return out, nil
	}

	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	labels, err := s.labels.Labels(ctx, dim, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate labels: %w", err)
	}
	for i := range out {
		out[i].Label = labels[out[i].Key]
	}
	return out, nil
}

// cacheKey returns "" when caching is off or the revision is unavailable.
func (s *Service) cacheKey(ctx context.Context, report string, q StatisticsQuery) string {
	if s.cache == nil {
		return ""
	}
	rev, err := s.movements.Revision(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ledger revision unavailable, skipping cache")
		return ""
	}
	p := q.Period
	f := q.Filters
	return fmt.Sprintf("%s:r%d:%s:%d:%d:%d:%s:%s:%s:%s:%d",
		report, rev, ledger.ParsePeriodUnit(string(p.Unit)), p.Year, p.Month, p.Quarter,
		q.GroupBy, f.Product, f.Store, f.Neighborhood, q.Top)
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if key == "" {
		return false
	}
	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("statistics cache read failed")
		return false
	}
	if found {
		s.logger.Debug().Str("key", key).Msg("statistics cache hit")
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("statistics cache write failed")
	}
}
