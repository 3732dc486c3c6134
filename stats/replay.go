package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// FILTERS
// =============================================================================

// Filters restricts which movement lines emit deltas. State is always
// updated regardless of filters.
type Filters struct {
	Product      ledger.ProductID
	Store        ledger.StoreID
	Neighborhood ledger.NeighborhoodID
}

// passes reports whether a line of m for product pid is in scope.
func (f Filters) passes(m ledger.Movement, pid ledger.ProductID) bool {
	if f.Product != "" && f.Product != pid {
		return false
	}
	if f.Store != "" && f.Store != m.StoreID() {
		return false
	}
	if f.Neighborhood != "" && f.Neighborhood != m.NeighborhoodID() {
		return false
	}
	return true
}

// placeScoped is true when a store or neighborhood filter is active.
// Revaluation has no place, so it is suppressed under such filters.
func (f Filters) placeScoped() bool {
	return f.Store != "" || f.Neighborhood != ""
}

// =============================================================================
// ENGINE - Single-pass cost-state replay
// =============================================================================

// Engine replays movements in ledger order. It mutates its CostBook for
// every movement and emits deltas into its Accumulator only for movements
// inside the period.
type Engine struct {
	period  ledger.Period
	filters Filters
	book    *CostBook
	acc     *Accumulator
}

func NewEngine(period ledger.Period, filters Filters) *Engine {
	return &Engine{
		period:  period,
		filters: filters,
		book:    NewCostBook(),
		acc:     NewAccumulator(),
	}
}

func (e *Engine) Book() *CostBook       { return e.book }
func (e *Engine) Result() *Accumulator  { return e.acc }
func (e *Engine) Period() ledger.Period { return e.period }
func (e *Engine) Filters() Filters      { return e.filters }

// Replay runs a fresh engine over movements, which must be ascending by
// (date, seq). Movements dated on or after the period end are ignored.
// The first inconsistency aborts the replay with a *ledger.ConsistencyError.
func Replay(ctx context.Context, movements []ledger.Movement, period ledger.Period, filters Filters) (*Accumulator, error) {
	e := NewEngine(period, filters)
	for _, m := range movements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !m.Date.Before(period.End) {
			break
		}
		if err := e.Apply(m); err != nil {
			return nil, err
		}
	}
	return e.acc, nil
}

// Apply processes one movement.
func (e *Engine) Apply(m ledger.Movement) error {
	switch m.Kind {
	case ledger.KindLoad:
		e.applyLoad(m)
		return nil
	case ledger.KindSale:
		return e.applySale(m)
	case ledger.KindRestock:
		return e.applyRestock(m)
	case ledger.KindShortage:
		return e.applyShortage(m)
	}
	return fmt.Errorf("%w: %q", ledger.ErrUnknownKind, m.Kind)
}

// =============================================================================
// LOAD - Purchase into owned stock, sets the unit cost
// =============================================================================

func (e *Engine) applyLoad(m ledger.Movement) {
	inPeriod := e.period.Contains(m.Date)
	totalQty := m.TotalQuantity()
	netCost := m.NetOfDiscount(m.GrossCost())

	var newCost *decimal.Decimal
	if totalQty.IsPositive() {
		c := netCost.Div(totalQty)
		newCost = &c
	}

	// Revaluation of stock held before this load, once per product.
	revalTotal := decimal.Zero
	if newCost != nil {
		seen := make(map[ledger.ProductID]bool, len(m.Lines))
		for _, li := range m.Lines {
			if seen[li.ProductID] {
				continue
			}
			seen[li.ProductID] = true

			st := e.book.product(li.ProductID)
			if st.UnitCost == nil || st.OwnedStock <= 0 {
				continue
			}
			reval := newCost.Sub(*st.UnitCost).Mul(decimal.NewFromInt(int64(st.OwnedStock)))
			if !inPeriod || e.filters.placeScoped() {
				continue
			}
			if e.filters.Product != "" && e.filters.Product != li.ProductID {
				continue
			}
			e.acc.Add(DimProduct, string(li.ProductID), Figures{
				RealizedProfit:    reval,
				RevaluationProfit: reval,
			})
			revalTotal = revalTotal.Add(reval)
		}
	}

	// Cost before stock, so a multi-line load does not compound.
	if newCost != nil {
		for _, li := range m.Lines {
			c := *newCost
			e.book.product(li.ProductID).UnitCost = &c
		}
	}
	for _, li := range m.Lines {
		e.book.product(li.ProductID).OwnedStock += li.Quantity
	}

	if !inPeriod {
		return
	}
	if totalQty.IsPositive() {
		for _, li := range m.Lines {
			if !e.filters.passes(m, li.ProductID) {
				continue
			}
			e.acc.Add(DimProduct, string(li.ProductID), Figures{
				Cost: netCost.Mul(li.Qty()).Div(totalQty),
			})
		}
	}
	e.acc.Add(DimKind, string(ledger.KindLoad), Figures{
		PhysicalUnits:     totalQty,
		Cost:              netCost,
		RealizedProfit:    revalTotal,
		RevaluationProfit: revalTotal,
	})
}

// =============================================================================
// SALE - Store inventory out, revenue in
// =============================================================================

func (e *Engine) applySale(m ledger.Movement) error {
	inPeriod := e.period.Contains(m.Date)
	gross := m.GrossRevenue()
	net := m.NetOfDiscount(gross)

	for _, li := range m.Lines {
		st := e.book.product(li.ProductID)
		key := ledger.StockKey{ProductID: li.ProductID, StoreID: m.StoreID()}
		if err := e.check(m, li, st, e.book.atStore[key], m.StoreID()); err != nil {
			return err
		}

		lineNet := decimal.Zero
		if gross.IsPositive() && li.TotalRevenue != nil {
			lineNet = net.Mul(*li.TotalRevenue).Div(gross)
		}
		cost := lineCost(st, li.Quantity)
		profit := lineNet.Sub(cost)

		if inPeriod && e.filters.passes(m, li.ProductID) {
			d := Figures{
				PhysicalUnits:  li.Qty(),
				Revenue:        lineNet,
				Cost:           cost,
				RealizedProfit: profit,
				GenuineProfit:  profit,
			}
			e.acc.Add(DimProduct, string(li.ProductID), d)
			e.acc.Add(DimStore, string(m.StoreID()), d)
			e.acc.Add(DimNeighborhood, string(m.NeighborhoodID()), d)
			e.acc.Add(DimKind, string(ledger.KindSale), d)
		}

		e.book.atStore[key] -= li.Quantity
	}
	return nil
}

// =============================================================================
// RESTOCK - Owned stock to store inventory
// =============================================================================

func (e *Engine) applyRestock(m ledger.Movement) error {
	inPeriod := e.period.Contains(m.Date)

	for _, li := range m.Lines {
		st := e.book.product(li.ProductID)
		if err := e.check(m, li, st, st.OwnedStock, ""); err != nil {
			return err
		}
		cost := lineCost(st, li.Quantity)

		if inPeriod && e.filters.passes(m, li.ProductID) {
			d := Figures{PhysicalUnits: li.Qty(), Cost: cost}
			e.acc.Add(DimKind, string(ledger.KindRestock), d)
			e.acc.Add(DimStore, string(m.StoreID()), d)
		}

		st.OwnedStock -= li.Quantity
		e.book.atStore[ledger.StockKey{ProductID: li.ProductID, StoreID: m.StoreID()}] += li.Quantity
	}
	return nil
}

// =============================================================================
// SHORTAGE - Write-off booked as a loss
// =============================================================================

// applyShortage writes off from the store's inventory when the movement
// names a store, otherwise from owned stock.
func (e *Engine) applyShortage(m ledger.Movement) error {
	inPeriod := e.period.Contains(m.Date)

	for _, li := range m.Lines {
		st := e.book.product(li.ProductID)
		key := ledger.StockKey{ProductID: li.ProductID, StoreID: m.StoreID()}

		available := st.OwnedStock
		if m.Store != nil {
			available = e.book.atStore[key]
		}
		if err := e.check(m, li, st, available, m.StoreID()); err != nil {
			return err
		}
		cost := lineCost(st, li.Quantity)

		if inPeriod && e.filters.passes(m, li.ProductID) {
			d := Figures{
				PhysicalUnits:  li.Qty(),
				Cost:           cost,
				RealizedProfit: cost.Neg(),
				GenuineProfit:  cost.Neg(),
			}
			e.acc.Add(DimKind, string(ledger.KindShortage), d)
			e.acc.Add(DimProduct, string(li.ProductID), d)
		}

		if m.Store != nil {
			e.book.atStore[key] -= li.Quantity
		} else {
			st.OwnedStock -= li.Quantity
		}
	}
	return nil
}

// check enforces an established unit cost and enough stock for one line.
func (e *Engine) check(m ledger.Movement, li ledger.LineItem, st *CostState, available int, store ledger.StoreID) error {
	if st.UnitCost != nil && available >= li.Quantity {
		return nil
	}
	return &ledger.ConsistencyError{
		Kind:        m.Kind,
		ProductID:   li.ProductID,
		StoreID:     store,
		Date:        m.Date,
		Available:   decimal.NewFromInt(int64(available)),
		Requested:   li.Qty(),
		MissingCost: st.UnitCost == nil,
	}
}

// Verify replays the whole ledger without emitting deltas and returns the
// first inconsistency, if any. Used to vet edits and deletions that could
// break movements recorded after them.
func Verify(ctx context.Context, movements []ledger.Movement) error {
	e := NewEngine(ledger.Period{}, Filters{})
	for _, m := range movements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Apply(m); err != nil {
			return err
		}
	}
	return nil
}
