package ledger

import "sort"

// =============================================================================
// STOCK POSITIONS - Quantities derived from the ledger
// =============================================================================

// StockKey addresses store inventory of one product at one store.
type StockKey struct {
	ProductID ProductID
	StoreID   StoreID
}

// Positions holds running quantities:
//
//	owned:    load +, restock -, shortage without store -
//	at store: restock +, sale -, shortage at that store -
type Positions struct {
	Owned   map[ProductID]int
	AtStore map[StockKey]int
}

func NewPositions() *Positions {
	return &Positions{
		Owned:   make(map[ProductID]int),
		AtStore: make(map[StockKey]int),
	}
}

// ComputePositions replays movements in the given order.
func ComputePositions(movements []Movement) *Positions {
	p := NewPositions()
	for _, m := range movements {
		p.Apply(m)
	}
	return p
}

// Apply updates the quantities for one movement. No checks are made here;
// use Validator for write-time checks and the stats replay for valuation.
func (p *Positions) Apply(m Movement) {
	for _, li := range m.Lines {
		switch m.Kind {
		case KindLoad:
			p.Owned[li.ProductID] += li.Quantity
		case KindRestock:
			p.Owned[li.ProductID] -= li.Quantity
			p.AtStore[StockKey{li.ProductID, m.StoreID()}] += li.Quantity
		case KindSale:
			p.AtStore[StockKey{li.ProductID, m.StoreID()}] -= li.Quantity
		case KindShortage:
			if m.Store == nil {
				p.Owned[li.ProductID] -= li.Quantity
			} else {
				p.AtStore[StockKey{li.ProductID, m.StoreID()}] -= li.Quantity
			}
		}
	}
}

func (p *Positions) OwnedQty(id ProductID) int { return p.Owned[id] }

func (p *Positions) StoreQty(id ProductID, store StoreID) int {
	return p.AtStore[StockKey{id, store}]
}

// OwnedEntry is one non-zero owned position.
type OwnedEntry struct {
	ProductID ProductID
	Quantity  int
}

// InventoryEntry is one non-zero store position.
type InventoryEntry struct {
	ProductID ProductID
	StoreID   StoreID
	Quantity  int
}

// OwnedList returns non-zero owned positions sorted by product id.
func (p *Positions) OwnedList() []OwnedEntry {
	out := make([]OwnedEntry, 0, len(p.Owned))
	for id, qty := range p.Owned {
		if qty != 0 {
			out = append(out, OwnedEntry{ProductID: id, Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// InventoryList returns non-zero store positions sorted by store, then product.
func (p *Positions) InventoryList() []InventoryEntry {
	out := make([]InventoryEntry, 0, len(p.AtStore))
	for k, qty := range p.AtStore {
		if qty != 0 && k.StoreID != "" {
			out = append(out, InventoryEntry{ProductID: k.ProductID, StoreID: k.StoreID, Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}
