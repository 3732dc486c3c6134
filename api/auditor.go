/*
auditor.go - Background ledger audit

PURPOSE:
  Periodically replays the whole ledger to catch inconsistencies early
  (a sale recorded before the stock that backs it, a shortage beyond what
  was held). Write-time checks only look at current positions, and data
  imported or edited outside the API bypasses them entirely.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each run replays every movement with stats.Verify
  - Warms the statistics cache with the current month's overview
  - Keeps the latest result for GET /api/audit

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the auditor is active (default: true)

USAGE:
  auditor := NewLedgerAuditor(handler)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - stats/replay.go: Verify
  - handlers.go: verifyLedger, the same check on edits and deletions
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/stats"
)

// AuditResult is the outcome of one audit run.
type AuditResult struct {
	CheckedAt  time.Time `json:"checkedAt"`
	Movements  int       `json:"movements"`
	Consistent bool      `json:"consistent"`
	Error      string    `json:"error,omitempty"`
}

// LedgerAuditor runs the ledger audit on a schedule.
type LedgerAuditor struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastMu sync.RWMutex
	last   *AuditResult
}

// NewLedgerAuditor creates a new auditor and attaches it to h so the
// latest result is served by GetAudit.
func NewLedgerAuditor(h *Handler) *LedgerAuditor {
	a := &LedgerAuditor{
		Handler:       h,
		CheckInterval: time.Hour,
		Enabled:       true,
	}
	h.auditor = a
	return a
}

// Start begins the auditor. It is a no-op while already running; a
// stopped auditor can be started again.
func (a *LedgerAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	logger := a.Handler.Logger
	if !a.Enabled || a.CheckInterval <= 0 {
		logger.Info().Msg("ledger auditor disabled")
		return
	}
	if a.ticker != nil {
		return
	}

	a.ticker = time.NewTicker(a.CheckInterval)
	a.stop = make(chan struct{})
	a.wg.Add(1)

	go a.run(a.ticker, a.stop)

	logger.Info().Dur("interval", a.CheckInterval).Msg("ledger auditor started")
}

// Stop stops the auditor and waits for a running audit to finish.
func (a *LedgerAuditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.wg.Wait()
		a.ticker = nil
		a.Handler.Logger.Info().Msg("ledger auditor stopped")
	}
}

func (a *LedgerAuditor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer a.wg.Done()

	// Run immediately on start
	a.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			a.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce audits the ledger now and records the result.
func (a *LedgerAuditor) RunOnce(ctx context.Context) AuditResult {
	h := a.Handler
	res := AuditResult{CheckedAt: time.Now().UTC()}

	movements, err := h.Store.Movements(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Msg("audit: failed to list movements")
		res.Error = err.Error()
		a.record(res)
		return res
	}
	res.Movements = len(movements)

	if err := stats.Verify(ctx, movements); err != nil {
		h.Logger.Error().Err(err).Int("movements", len(movements)).Msg("audit: ledger inconsistent")
		res.Error = err.Error()
		a.record(res)
		return res
	}
	res.Consistent = true

	// Warm the cache for the dashboard's default view.
	today := ledger.Today()
	if _, err := h.Stats.Overview(ctx, ledger.PeriodQuery{
		Unit: ledger.UnitMonth, Year: today.Year(), Month: int(today.Month()),
	}); err != nil {
		h.Logger.Warn().Err(err).Msg("audit: overview warm-up failed")
	}

	h.Logger.Debug().Int("movements", len(movements)).Msg("audit: ledger consistent")
	a.record(res)
	return res
}

func (a *LedgerAuditor) record(res AuditResult) {
	a.lastMu.Lock()
	defer a.lastMu.Unlock()
	a.last = &res
}

// Last returns the latest audit result, or nil before the first run.
func (a *LedgerAuditor) Last() *AuditResult {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	if a.last == nil {
		return nil
	}
	res := *a.last
	return &res
}

// GetAudit returns the latest audit result. With ?run=true, or when no
// audit ran yet, it audits the ledger first.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		writeError(w, http.StatusNotFound, "Ledger auditor is not configured", nil)
		return
	}

	last := h.auditor.Last()
	if last == nil || r.URL.Query().Get("run") == "true" {
		res := h.auditor.RunOnce(r.Context())
		last = &res
	}
	writeJSON(w, http.StatusOK, last)
}
