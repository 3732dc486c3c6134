package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/ledger"
)

func TestLedgerAuditor_ConsistentLedger(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario("neighborhood-mix")
	auditor := NewLedgerAuditor(s.handler)

	res := auditor.RunOnce(context.Background())
	assert.True(t, res.Consistent)
	assert.Equal(t, 9, res.Movements)
	assert.Empty(t, res.Error)
	require.NotNil(t, auditor.Last())
	assert.Equal(t, res, *auditor.Last())
}

func TestLedgerAuditor_DetectsInconsistency(t *testing.T) {
	// GIVEN: A sale written straight to the store, bypassing validation,
	//        before the restock that would back it
	// WHEN: Auditing
	// THEN: The audit reports the sale's product and date

	s := newTestServer(t)
	s.loadScenario("january-2024")
	auditor := NewLedgerAuditor(s.handler)

	revenue := decimal.NewFromInt(10)
	require.NoError(t, s.handler.Store.CreateMovement(context.Background(), &ledger.Movement{
		ID:    "rogue",
		Date:  ledger.NewTimePoint(2024, time.January, 7),
		Kind:  ledger.KindSale,
		Store: &ledger.StoreRef{ID: "kiosco-sol"},
		Lines: []ledger.LineItem{{ProductID: "yerba-1kg", Quantity: 1, TotalRevenue: &revenue}},
	}))

	res := auditor.RunOnce(context.Background())
	assert.False(t, res.Consistent)
	assert.Contains(t, res.Error, "yerba-1kg")
	assert.Contains(t, res.Error, "2024-01-07")

	rec := s.do(http.MethodGet, "/api/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[AuditResult](t, rec).Consistent)
}

func TestGetAudit_RunsOnDemand(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/audit", nil).Code)

	NewLedgerAuditor(s.handler)
	rec := s.do(http.MethodGet, "/api/audit?run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[AuditResult](t, rec)
	assert.True(t, res.Consistent)
	assert.Zero(t, res.Movements)
}

func TestLedgerAuditor_StartStop(t *testing.T) {
	s := newTestServer(t)
	auditor := NewLedgerAuditor(s.handler)
	auditor.CheckInterval = time.Hour

	auditor.Start()
	auditor.Stop()

	// The first audit runs immediately and Stop waits for it.
	assert.NotNil(t, auditor.Last())

	// Stopping twice is harmless.
	auditor.Stop()
}

func TestLedgerAuditor_Restart(t *testing.T) {
	// GIVEN: An auditor that was started and stopped
	// WHEN: Starting it again
	// THEN: It keeps auditing on every tick, not only once

	s := newTestServer(t)
	auditor := NewLedgerAuditor(s.handler)
	auditor.CheckInterval = time.Hour
	auditor.Start()
	auditor.Stop()

	auditor.lastMu.Lock()
	auditor.last = nil
	auditor.lastMu.Unlock()

	auditor.CheckInterval = 10 * time.Millisecond
	auditor.Start()
	defer auditor.Stop()

	require.Eventually(t, func() bool { return auditor.Last() != nil }, time.Second, 5*time.Millisecond)
	first := auditor.Last().CheckedAt
	assert.Eventually(t, func() bool {
		return auditor.Last().CheckedAt.After(first)
	}, time.Second, 5*time.Millisecond)
}

func TestLedgerAuditor_Disabled(t *testing.T) {
	s := newTestServer(t)
	auditor := NewLedgerAuditor(s.handler)
	auditor.CheckInterval = 0

	auditor.Start()
	auditor.Stop()
	assert.Nil(t, auditor.Last())
}
