package stats

import (
	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// COST BOOK - Ephemeral per-request cost state
// =============================================================================

// CostState is the running state of one product during replay.
type CostState struct {
	// OwnedStock is the quantity in owned (central) inventory.
	OwnedStock int

	// UnitCost is set by the most recent load and stays nil until the
	// first load of the product.
	UnitCost *decimal.Decimal
}

// CostBook holds the cost state of every product plus the inventory of
// every (product, store) pair. It is built fresh for each computation.
type CostBook struct {
	products map[ledger.ProductID]*CostState
	atStore  map[ledger.StockKey]int
}

func NewCostBook() *CostBook {
	return &CostBook{
		products: make(map[ledger.ProductID]*CostState),
		atStore:  make(map[ledger.StockKey]int),
	}
}

// product returns the mutable state for id, creating an empty one.
func (b *CostBook) product(id ledger.ProductID) *CostState {
	st, ok := b.products[id]
	if !ok {
		st = &CostState{}
		b.products[id] = st
	}
	return st
}

// State returns a copy of the state of a product.
func (b *CostBook) State(id ledger.ProductID) CostState {
	st, ok := b.products[id]
	if !ok {
		return CostState{}
	}
	return *st
}

// StoreQty returns the inventory of a product at a store.
func (b *CostBook) StoreQty(id ledger.ProductID, store ledger.StoreID) int {
	return b.atStore[ledger.StockKey{ProductID: id, StoreID: store}]
}

// Products returns the product ids seen so far.
func (b *CostBook) Products() []ledger.ProductID {
	out := make([]ledger.ProductID, 0, len(b.products))
	for id := range b.products {
		out = append(out, id)
	}
	return out
}

// StoreKeys returns the (product, store) pairs seen so far.
func (b *CostBook) StoreKeys() []ledger.StockKey {
	out := make([]ledger.StockKey, 0, len(b.atStore))
	for k := range b.atStore {
		out = append(out, k)
	}
	return out
}

// lineCost values qty units at the current unit cost.
func lineCost(st *CostState, qty int) decimal.Decimal {
	return st.UnitCost.Mul(decimal.NewFromInt(int64(qty)))
}
