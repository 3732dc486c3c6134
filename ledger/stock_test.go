package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/stock-engine/ledger"
)

func march(d int) ledger.TimePoint { return ledger.NewTimePoint(2024, time.March, d) }

func TestComputePositions(t *testing.T) {
	// GIVEN: Load 10, restock 4 to S1 and 3 to S2, sell 1 at S1,
	//        lose 1 at S2 and 2 from owned stock
	// WHEN: Computing positions
	// THEN: Owned = 10-4-3-2, S1 = 4-1, S2 = 3-1

	s1 := &ledger.StoreRef{ID: "S1"}
	s2 := &ledger.StoreRef{ID: "S2"}
	movements := []ledger.Movement{
		{Date: march(1), Kind: ledger.KindLoad, Lines: []ledger.LineItem{{ProductID: "A", Quantity: 10}}},
		{Date: march(2), Kind: ledger.KindRestock, Store: s1, Lines: []ledger.LineItem{{ProductID: "A", Quantity: 4}}},
		{Date: march(2), Kind: ledger.KindRestock, Store: s2, Lines: []ledger.LineItem{{ProductID: "A", Quantity: 3}}},
		{Date: march(3), Kind: ledger.KindSale, Store: s1, Lines: []ledger.LineItem{{ProductID: "A", Quantity: 1}}},
		{Date: march(4), Kind: ledger.KindShortage, Store: s2, Lines: []ledger.LineItem{{ProductID: "A", Quantity: 1}}},
		{Date: march(5), Kind: ledger.KindShortage, Lines: []ledger.LineItem{{ProductID: "A", Quantity: 2}}},
	}

	pos := ledger.ComputePositions(movements)

	assert.Equal(t, 1, pos.OwnedQty("A"))
	assert.Equal(t, 3, pos.StoreQty("A", "S1"))
	assert.Equal(t, 2, pos.StoreQty("A", "S2"))
	assert.Equal(t, 0, pos.StoreQty("B", "S1"))

	assert.Equal(t, []ledger.OwnedEntry{{ProductID: "A", Quantity: 1}}, pos.OwnedList())
	assert.Equal(t, []ledger.InventoryEntry{
		{ProductID: "A", StoreID: "S1", Quantity: 3},
		{ProductID: "A", StoreID: "S2", Quantity: 2},
	}, pos.InventoryList())
}

func TestPositions_ListsSkipZeroAndSort(t *testing.T) {
	s1 := &ledger.StoreRef{ID: "S1"}
	movements := []ledger.Movement{
		{Date: march(1), Kind: ledger.KindLoad, Lines: []ledger.LineItem{
			{ProductID: "B", Quantity: 2},
			{ProductID: "A", Quantity: 5},
			{ProductID: "C", Quantity: 1},
		}},
		{Date: march(2), Kind: ledger.KindRestock, Store: s1, Lines: []ledger.LineItem{{ProductID: "C", Quantity: 1}}},
		{Date: march(3), Kind: ledger.KindSale, Store: s1, Lines: []ledger.LineItem{{ProductID: "C", Quantity: 1}}},
	}

	pos := ledger.ComputePositions(movements)

	assert.Equal(t, []ledger.OwnedEntry{
		{ProductID: "A", Quantity: 5},
		{ProductID: "B", Quantity: 2},
	}, pos.OwnedList())
	assert.Empty(t, pos.InventoryList())
}

func TestMovement_Totals(t *testing.T) {
	m := ledger.Movement{
		Kind:     ledger.KindSale,
		Discount: dec("15"),
		Lines: []ledger.LineItem{
			{ProductID: "A", Quantity: 3, TotalRevenue: decp("10")},
			{ProductID: "B", Quantity: 2},
		},
	}

	assert.True(t, m.TotalQuantity().Equal(dec("5")))
	assert.True(t, m.GrossRevenue().Equal(dec("10")))
	assert.True(t, m.GrossCost().IsZero())
	assert.True(t, m.NetOfDiscount(m.GrossRevenue()).IsZero(), "floored at zero")
	assert.True(t, m.NetOfDiscount(dec("40")).Equal(dec("25")))
	assert.Equal(t, ledger.StoreID(""), m.StoreID())
	assert.Equal(t, ledger.NeighborhoodID(""), m.NeighborhoodID())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]ledger.Kind{
		"load": ledger.KindLoad, "carga": ledger.KindLoad,
		"Venta": ledger.KindSale, " reposicion ": ledger.KindRestock,
		"faltante": ledger.KindShortage, "shortage": ledger.KindShortage,
	} {
		got, err := ledger.ParseKind(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ledger.ParseKind("gift")
	assert.ErrorIs(t, err, ledger.ErrUnknownKind)
	assert.False(t, ledger.Kind("gift").Valid())
	assert.True(t, ledger.KindSale.RequiresStore())
	assert.False(t, ledger.KindShortage.RequiresStore())
}
