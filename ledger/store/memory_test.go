package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/ledger/store"
)

func day(d int) ledger.TimePoint { return ledger.NewTimePoint(2024, time.April, d) }

func ids(list []ledger.Movement) []ledger.MovementID {
	out := make([]ledger.MovementID, len(list))
	for i, m := range list {
		out[i] = m.ID
	}
	return out
}

func TestMemory_OrdersByDateThenInsertion(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	for _, m := range []ledger.Movement{
		{ID: "c", Date: day(5), Kind: ledger.KindLoad},
		{ID: "a", Date: day(2), Kind: ledger.KindLoad},
		{ID: "b1", Date: day(3), Kind: ledger.KindLoad},
		{ID: "b2", Date: day(3), Kind: ledger.KindLoad},
	} {
		m := m
		require.NoError(t, s.CreateMovement(ctx, &m))
	}

	all, err := s.Movements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.MovementID{"a", "b1", "b2", "c"}, ids(all))

	before, err := s.ListMovements(ctx, day(5))
	require.NoError(t, err)
	assert.Equal(t, []ledger.MovementID{"a", "b1", "b2"}, ids(before))
}

func TestMemory_UpdateKeepsInsertionOrder(t *testing.T) {
	// GIVEN: Two movements on the same day
	// WHEN: The first is corrected
	// THEN: It keeps its Seq and stays ahead of the second

	ctx := context.Background()
	s := store.NewMemory()

	first := &ledger.Movement{ID: "first", Date: day(3), Kind: ledger.KindLoad}
	second := &ledger.Movement{ID: "second", Date: day(3), Kind: ledger.KindLoad}
	require.NoError(t, s.CreateMovement(ctx, first))
	require.NoError(t, s.CreateMovement(ctx, second))

	require.NoError(t, s.UpdateMovement(ctx, ledger.Movement{ID: "first", Date: day(3), Kind: ledger.KindLoad, Notes: "fixed"}))

	all, err := s.Movements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.MovementID{"first", "second"}, ids(all))
	assert.Equal(t, first.Seq, all[0].Seq)
	assert.Equal(t, "fixed", all[0].Notes)

	// Moving it to a later day reorders it.
	require.NoError(t, s.UpdateMovement(ctx, ledger.Movement{ID: "first", Date: day(4), Kind: ledger.KindLoad}))
	all, err = s.Movements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.MovementID{"second", "first"}, ids(all))
}

func TestMemory_InlinesNeighborhood(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SaveStore(ctx, ledger.Store{ID: "S1", NeighborhoodID: "N1"}))
	require.NoError(t, s.CreateMovement(ctx, &ledger.Movement{
		ID: "m", Date: day(1), Kind: ledger.KindRestock, Store: &ledger.StoreRef{ID: "S1"},
	}))

	m, err := s.GetMovement(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, ledger.NeighborhoodID("N1"), m.NeighborhoodID())

	// A store moved to another neighborhood is reported there from now on.
	require.NoError(t, s.SaveStore(ctx, ledger.Store{ID: "S1", NeighborhoodID: "N2"}))
	m, err = s.GetMovement(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, ledger.NeighborhoodID("N2"), m.NeighborhoodID())
}

func TestMemory_RevisionAndReset(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	r0, _ := s.Revision(ctx)
	require.NoError(t, s.CreateMovement(ctx, &ledger.Movement{ID: "m", Date: day(1), Kind: ledger.KindLoad}))
	r1, _ := s.Revision(ctx)
	assert.Greater(t, r1, r0)

	assert.ErrorIs(t, s.DeleteMovement(ctx, "missing"), ledger.ErrMovementNotFound)
	r2, _ := s.Revision(ctx)
	assert.Equal(t, r1, r2)

	require.NoError(t, s.Reset(ctx))
	r3, _ := s.Revision(ctx)
	assert.Greater(t, r3, r2)

	all, err := s.Movements(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemory_CatalogNotFound(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	_, err := s.GetProduct(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)
	_, err = s.GetStore(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrStoreNotFound)
	_, err = s.GetNeighborhood(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrNeighborhoodNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, "x"), ledger.ErrProductNotFound)
}
