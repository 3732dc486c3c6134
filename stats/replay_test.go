package stats_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/stats"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func jan(day int) ledger.TimePoint { return ledger.NewTimePoint(2024, time.January, day) }

func january2024() ledger.Period {
	return ledger.ResolvePeriod(ledger.PeriodQuery{Unit: ledger.UnitMonth, Year: 2024, Month: 1})
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

// ledgerBuilder assigns insertion order the way a store would.
type ledgerBuilder struct {
	seq       int64
	movements []ledger.Movement
}

func (b *ledgerBuilder) add(m ledger.Movement) *ledgerBuilder {
	b.seq++
	m.Seq = b.seq
	m.ID = ledger.MovementID(fmt.Sprintf("m%d", b.seq))
	b.movements = append(b.movements, m)
	return b
}

func (b *ledgerBuilder) load(date ledger.TimePoint, lines ...ledger.LineItem) *ledgerBuilder {
	return b.add(ledger.Movement{Date: date, Kind: ledger.KindLoad, Lines: lines})
}

func (b *ledgerBuilder) restock(date ledger.TimePoint, store ledger.StoreRef, lines ...ledger.LineItem) *ledgerBuilder {
	return b.add(ledger.Movement{Date: date, Kind: ledger.KindRestock, Store: &store, Lines: lines})
}

func (b *ledgerBuilder) sale(date ledger.TimePoint, store ledger.StoreRef, discount string, lines ...ledger.LineItem) *ledgerBuilder {
	return b.add(ledger.Movement{Date: date, Kind: ledger.KindSale, Store: &store, Discount: dec(discount), Lines: lines})
}

func (b *ledgerBuilder) shortage(date ledger.TimePoint, store *ledger.StoreRef, lines ...ledger.LineItem) *ledgerBuilder {
	return b.add(ledger.Movement{Date: date, Kind: ledger.KindShortage, Store: store, Lines: lines})
}

func bought(pid ledger.ProductID, qty int, cost string) ledger.LineItem {
	return ledger.LineItem{ProductID: pid, Quantity: qty, TotalCost: decp(cost)}
}

func sold(pid ledger.ProductID, qty int, revenue string) ledger.LineItem {
	return ledger.LineItem{ProductID: pid, Quantity: qty, TotalRevenue: decp(revenue)}
}

func moved(pid ledger.ProductID, qty int) ledger.LineItem {
	return ledger.LineItem{ProductID: pid, Quantity: qty}
}

var (
	storeS1 = ledger.StoreRef{ID: "S1", NeighborhoodID: "N1"}
	storeS2 = ledger.StoreRef{ID: "S2", NeighborhoodID: "N2"}
)

func row(t *testing.T, acc *stats.Accumulator, dim stats.Dimension, key string) stats.Row {
	t.Helper()
	r, ok := acc.Get(dim, key)
	require.Truef(t, ok, "missing row %s/%s", dim, key)
	return r
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestReplay_JanuaryScenario(t *testing.T) {
	// GIVEN: Load 10 units for 100, restock 4 to S1, sell 2 for 50
	// WHEN: Replaying January 2024
	// THEN: The sale books revenue 50, cost 2×10 and profit 30

	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		restock(jan(10), storeS1, moved("A", 4)).
		sale(jan(15), storeS1, "0", sold("A", 2, "50"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	sale := row(t, acc, stats.DimKind, "sale")
	assertDec(t, "2", sale.PhysicalUnits, "sale units")
	assertDec(t, "50", sale.Revenue, "sale revenue")
	assertDec(t, "20", sale.Cost, "sale cost")
	assertDec(t, "30", sale.RealizedProfit, "sale realized")
	assertDec(t, "30", sale.GenuineProfit, "sale genuine")
	assertDec(t, "0", sale.RevaluationProfit, "sale revaluation")

	// Product row also carries the prorated purchase cost of the January load.
	product := row(t, acc, stats.DimProduct, "A")
	assertDec(t, "2", product.PhysicalUnits, "product units")
	assertDec(t, "50", product.Revenue, "product revenue")
	assertDec(t, "120", product.Cost, "product cost")
	assertDec(t, "30", product.RealizedProfit, "product realized")
	assertDec(t, "0", product.RevaluationProfit, "product revaluation")

	store := row(t, acc, stats.DimStore, "S1")
	assertDec(t, "6", store.PhysicalUnits, "store units")
	assertDec(t, "60", store.Cost, "store cost")

	hood := row(t, acc, stats.DimNeighborhood, "N1")
	assertDec(t, "2", hood.PhysicalUnits, "neighborhood units")
	assertDec(t, "50", hood.Revenue, "neighborhood revenue")

	load := row(t, acc, stats.DimKind, "load")
	assertDec(t, "10", load.PhysicalUnits, "load units")
	assertDec(t, "100", load.Cost, "load cost")

	restock := row(t, acc, stats.DimKind, "restock")
	assertDec(t, "4", restock.PhysicalUnits, "restock units")
	assertDec(t, "40", restock.Cost, "restock cost")
}

func TestReplay_HistoryBeforePeriodOnlyMutatesState(t *testing.T) {
	// GIVEN: Load and restock in December, sale in January
	// WHEN: Replaying January 2024
	// THEN: Only the sale emits deltas, valued at December's unit cost

	b := (&ledgerBuilder{}).
		load(ledger.NewTimePoint(2023, time.December, 5), bought("A", 10, "100")).
		restock(ledger.NewTimePoint(2023, time.December, 10), storeS1, moved("A", 4)).
		sale(jan(15), storeS1, "0", sold("A", 2, "50"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	product := row(t, acc, stats.DimProduct, "A")
	assertDec(t, "20", product.Cost, "product cost")
	assertDec(t, "30", product.RealizedProfit, "product realized")

	_, ok := acc.Get(stats.DimKind, "load")
	assert.False(t, ok, "december load must not emit a january row")
	_, ok = acc.Get(stats.DimKind, "restock")
	assert.False(t, ok)
}

// =============================================================================
// LOAD AND REVALUATION
// =============================================================================

func TestReplay_FirstLoadHasNoRevaluation(t *testing.T) {
	b := (&ledgerBuilder{}).load(jan(5), bought("A", 10, "100"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	assertDec(t, "0", row(t, acc, stats.DimProduct, "A").RevaluationProfit, "product revaluation")
	assertDec(t, "0", row(t, acc, stats.DimKind, "load").RevaluationProfit, "load revaluation")
}

func TestReplay_RevaluationOnSecondLoad(t *testing.T) {
	// GIVEN: 10 units at 10 each, then 10 more at 15 each
	// WHEN: Replaying January
	// THEN: Prior stock is revalued by (15-10)×10 = 50

	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		load(jan(6), bought("A", 10, "150"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	product := row(t, acc, stats.DimProduct, "A")
	assertDec(t, "50", product.RevaluationProfit, "product revaluation")
	assertDec(t, "50", product.RealizedProfit, "product realized")
	assertDec(t, "250", product.Cost, "product cost")

	load := row(t, acc, stats.DimKind, "load")
	assertDec(t, "50", load.RevaluationProfit, "load revaluation")
	assertDec(t, "20", load.PhysicalUnits, "load units")
}

func TestReplay_RevaluationCountedOncePerProduct(t *testing.T) {
	// GIVEN: 10 units at 10, then one load with two lines of the same product
	// WHEN: The second load has unit cost 150/10 = 15
	// THEN: Revaluation is 50, not 100

	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		load(jan(6), bought("A", 5, "50"), bought("A", 5, "100"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	assertDec(t, "50", row(t, acc, stats.DimProduct, "A").RevaluationProfit, "product revaluation")
}

func TestReplay_RevaluationSuppressedByPlaceFilter(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		load(jan(6), bought("A", 10, "150"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{Store: "S1"})
	require.NoError(t, err)

	_, ok := acc.Get(stats.DimProduct, "A")
	assert.False(t, ok, "store filter drops load lines and revaluation")

	load := row(t, acc, stats.DimKind, "load")
	assertDec(t, "0", load.RevaluationProfit, "load revaluation")
	assertDec(t, "250", load.Cost, "kind row ignores filters")
}

func TestReplay_LoadDiscountLowersUnitCost(t *testing.T) {
	// GIVEN: 10 units, gross cost 100, discount 20
	// WHEN: Restocking 1 unit afterwards
	// THEN: The restock is valued at 80/10 = 8

	b := (&ledgerBuilder{}).
		add(ledger.Movement{Date: jan(5), Kind: ledger.KindLoad, Discount: dec("20"), Lines: []ledger.LineItem{bought("A", 10, "100")}}).
		restock(jan(6), storeS1, moved("A", 1))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	assertDec(t, "80", row(t, acc, stats.DimKind, "load").Cost, "load cost")
	assertDec(t, "8", row(t, acc, stats.DimKind, "restock").Cost, "restock cost")
}

func TestReplay_LoadDiscountFlooredAtZero(t *testing.T) {
	b := (&ledgerBuilder{}).
		add(ledger.Movement{Date: jan(5), Kind: ledger.KindLoad, Discount: dec("500"), Lines: []ledger.LineItem{bought("A", 10, "100")}})

	e := stats.NewEngine(january2024(), stats.Filters{})
	require.NoError(t, e.Apply(b.movements[0]))

	st := e.Book().State("A")
	require.NotNil(t, st.UnitCost)
	assertDec(t, "0", *st.UnitCost, "unit cost")
	assert.Equal(t, 10, st.OwnedStock)
}

// =============================================================================
// SALE
// =============================================================================

func TestReplay_SaleDiscountProration(t *testing.T) {
	// GIVEN: A two-line sale, gross 30 + 70, discount 10
	// WHEN: Replaying
	// THEN: Lines receive 27 and 63, summing to the net revenue 90

	b := (&ledgerBuilder{}).
		load(jan(2), bought("A", 10, "100"), bought("B", 10, "200")).
		restock(jan(3), storeS1, moved("A", 5), moved("B", 5)).
		sale(jan(4), storeS1, "10", sold("A", 1, "30"), sold("B", 1, "70"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	assertDec(t, "27", row(t, acc, stats.DimProduct, "A").Revenue, "A revenue")
	assertDec(t, "63", row(t, acc, stats.DimProduct, "B").Revenue, "B revenue")
	assertDec(t, "90", row(t, acc, stats.DimKind, "sale").Revenue, "sale revenue")
	assertDec(t, "90", row(t, acc, stats.DimStore, "S1").Revenue, "store revenue")
}

func TestReplay_SaleFiltersRestrictDeltas(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(2), bought("A", 10, "100")).
		restock(jan(3), storeS1, moved("A", 5)).
		restock(jan(3), storeS2, moved("A", 5)).
		sale(jan(4), storeS1, "0", sold("A", 1, "30")).
		sale(jan(4), storeS2, "0", sold("A", 2, "60"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{Neighborhood: "N2"})
	require.NoError(t, err)

	assertDec(t, "60", row(t, acc, stats.DimKind, "sale").Revenue, "sale revenue")
	_, ok := acc.Get(stats.DimStore, "S1")
	assert.False(t, ok)
	assertDec(t, "2", row(t, acc, stats.DimNeighborhood, "N2").PhysicalUnits, "N2 units")
}

func TestReplay_SaleWithoutStoreStockFails(t *testing.T) {
	// GIVEN: Stock is loaded but never restocked to S1
	// WHEN: S1 sells
	// THEN: Replay aborts naming product and date

	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		sale(jan(15), storeS1, "0", sold("A", 2, "50"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.Error(t, err)
	assert.Nil(t, acc)
	assert.True(t, errors.Is(err, ledger.ErrLedgerInconsistent))

	var cerr *ledger.ConsistencyError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ledger.ProductID("A"), cerr.ProductID)
	assert.False(t, cerr.MissingCost)
	assert.Contains(t, err.Error(), "product=A")
	assert.Contains(t, err.Error(), "2024-01-15")
}

func TestReplay_SaleBeyondPartialRestockFails(t *testing.T) {
	// GIVEN: Only 3 units restocked to S1
	// WHEN: S1 sells 5, in the requested period or before it
	// THEN: Replay aborts reporting 3 available against 5 requested

	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		restock(jan(10), storeS1, moved("A", 3)).
		sale(jan(15), storeS1, "0", sold("A", 5, "125"))

	february := ledger.ResolvePeriod(ledger.PeriodQuery{Unit: ledger.UnitMonth, Year: 2024, Month: 2})
	for _, period := range []ledger.Period{january2024(), february} {
		_, err := stats.Replay(context.Background(), b.movements, period, stats.Filters{})

		var cerr *ledger.ConsistencyError
		require.True(t, errors.As(err, &cerr), "period %s", period.Start)
		assert.Equal(t, ledger.ProductID("A"), cerr.ProductID)
		assert.Equal(t, ledger.StoreID("S1"), cerr.StoreID)
		assert.True(t, jan(15).Equal(cerr.Date))
		assertDec(t, "3", cerr.Available, "available")
		assertDec(t, "5", cerr.Requested, "requested")
		assert.False(t, cerr.MissingCost)
		assert.Contains(t, err.Error(), "available 3, requested 5")
	}

	// Selling exactly what was restocked is fine.
	ok := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		restock(jan(10), storeS1, moved("A", 3)).
		sale(jan(15), storeS1, "0", sold("A", 3, "75"))
	_, err := stats.Replay(context.Background(), ok.movements, january2024(), stats.Filters{})
	assert.NoError(t, err)
}

func TestReplay_InconsistencyBeforePeriodStillFails(t *testing.T) {
	b := (&ledgerBuilder{}).
		restock(ledger.NewTimePoint(2023, time.November, 1), storeS1, moved("A", 1)).
		load(jan(5), bought("A", 10, "100"))

	_, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})

	var cerr *ledger.ConsistencyError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, cerr.MissingCost)
	assert.Contains(t, err.Error(), "no unit cost established")
	assert.Contains(t, err.Error(), "2023-11-01")
}

// =============================================================================
// RESTOCK AND SHORTAGE
// =============================================================================

func TestReplay_RestockBeyondOwnedStockFails(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 3, "30")).
		restock(jan(6), storeS1, moved("A", 4))

	_, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})

	var cerr *ledger.ConsistencyError
	require.True(t, errors.As(err, &cerr))
	assertDec(t, "3", cerr.Available, "available")
	assertDec(t, "4", cerr.Requested, "requested")
}

func TestReplay_ShortageAtStoreIsALoss(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		restock(jan(6), storeS1, moved("A", 4)).
		shortage(jan(7), &storeS1, moved("A", 3))

	e := stats.NewEngine(january2024(), stats.Filters{})
	for _, m := range b.movements {
		require.NoError(t, e.Apply(m))
	}

	short := row(t, e.Result(), stats.DimKind, "shortage")
	assertDec(t, "3", short.PhysicalUnits, "shortage units")
	assertDec(t, "30", short.Cost, "shortage cost")
	assertDec(t, "-30", short.RealizedProfit, "shortage realized")
	assertDec(t, "-30", short.GenuineProfit, "shortage genuine")
	assertDec(t, "0", short.RevaluationProfit, "shortage revaluation")

	assert.Equal(t, 1, e.Book().StoreQty("A", "S1"))
	assert.Equal(t, 6, e.Book().State("A").OwnedStock, "owned stock untouched")
}

func TestReplay_ShortageWithoutStoreWritesOffOwnedStock(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(5), bought("A", 10, "100")).
		shortage(jan(7), nil, moved("A", 2))

	e := stats.NewEngine(january2024(), stats.Filters{})
	for _, m := range b.movements {
		require.NoError(t, e.Apply(m))
	}

	assert.Equal(t, 8, e.Book().State("A").OwnedStock)
	assertDec(t, "-20", row(t, e.Result(), stats.DimProduct, "A").RealizedProfit, "product realized")
}

// =============================================================================
// PERIOD BOUNDARIES
// =============================================================================

func TestReplay_PeriodStartInclusiveEndExclusive(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(1), bought("A", 1, "10")).
		load(ledger.NewTimePoint(2024, time.February, 1), bought("A", 1, "10"))

	acc, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	assertDec(t, "1", row(t, acc, stats.DimKind, "load").PhysicalUnits, "load units")
}

func TestReplay_FirstHalfExcludesDay16(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(15), bought("A", 1, "10")).
		load(jan(16), bought("A", 1, "10"))

	period := ledger.ResolvePeriod(ledger.PeriodQuery{Unit: ledger.UnitFirstHalf, Year: 2024, Month: 1})
	acc, err := stats.Replay(context.Background(), b.movements, period, stats.Filters{})
	require.NoError(t, err)

	assertDec(t, "1", row(t, acc, stats.DimKind, "load").PhysicalUnits, "load units")
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestReplay_StockNeverNegative(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(2), bought("A", 10, "100"), bought("B", 4, "40")).
		restock(jan(3), storeS1, moved("A", 6), moved("B", 4)).
		sale(jan(4), storeS1, "0", sold("A", 6, "90")).
		shortage(jan(5), &storeS1, moved("B", 4)).
		shortage(jan(6), nil, moved("A", 4))

	e := stats.NewEngine(january2024(), stats.Filters{})
	for _, m := range b.movements {
		require.NoError(t, e.Apply(m))

		for _, pid := range e.Book().Products() {
			assert.GreaterOrEqual(t, e.Book().State(pid).OwnedStock, 0)
		}
		for _, k := range e.Book().StoreKeys() {
			assert.GreaterOrEqual(t, e.Book().StoreQty(k.ProductID, k.StoreID), 0)
		}
	}
}

func TestReplay_Idempotent(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(2), bought("A", 3, "100"), bought("B", 7, "50")).
		load(jan(3), bought("A", 3, "120")).
		restock(jan(3), storeS1, moved("A", 5), moved("B", 2)).
		sale(jan(4), storeS1, "7", sold("A", 2, "95"), sold("B", 1, "33"))

	first, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)
	second, err := stats.Replay(context.Background(), b.movements, january2024(), stats.Filters{})
	require.NoError(t, err)

	a, err := json.Marshal(first.AllRows())
	require.NoError(t, err)
	c, err := json.Marshal(second.AllRows())
	require.NoError(t, err)
	assert.Equal(t, string(a), string(c))
}

func TestReplay_HonorsCancellation(t *testing.T) {
	b := (&ledgerBuilder{}).load(jan(2), bought("A", 1, "10"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stats.Replay(ctx, b.movements, january2024(), stats.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RejectsUnknownKind(t *testing.T) {
	e := stats.NewEngine(january2024(), stats.Filters{})
	err := e.Apply(ledger.Movement{Date: jan(2), Kind: "gift"})
	assert.ErrorIs(t, err, ledger.ErrUnknownKind)
}

func TestVerify(t *testing.T) {
	b := (&ledgerBuilder{}).
		load(jan(2), bought("A", 10, "100")).
		restock(jan(3), storeS1, moved("A", 5)).
		sale(jan(4), storeS1, "0", sold("A", 5, "90"))

	assert.NoError(t, stats.Verify(context.Background(), b.movements))

	// Without the load nothing downstream can be valued.
	err := stats.Verify(context.Background(), b.movements[1:])
	assert.ErrorIs(t, err, ledger.ErrLedgerInconsistent)
}
