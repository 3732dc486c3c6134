/*
Package ledger provides the stock movement ledger and its domain types.

PURPOSE:
  The ledger is the single source of truth for the distribution business.
  Every purchase, store restock, sale and shortage is recorded as an
  immutable Movement. Stock positions, unit costs and period statistics
  are never stored: they are always derived by replaying movements in
  (date, insertion order).

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: closed set of movement kinds (load, sale, restock, shortage)
  - Movement: one ledger entry with its line items
  - LineItem: product + quantity + cost or revenue totals
  - Product, Store, Neighborhood: catalog references

MOVEMENT KINDS:
  load      Purchase into owned inventory. Lines carry TotalCost.
  restock   Transfer owned inventory -> store inventory. Requires Store.
  sale      Sale from a store's inventory. Lines carry TotalRevenue.
  shortage  Write-off. From the store's inventory when Store is set,
            otherwise from owned inventory.

SEE ALSO:
  - period.go: Period resolution for statistics
  - validate.go: Movement input validation
  - stock.go: Stock positions derived from movements
  - stats/: Cost-state replay and aggregation
*/
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// KIND - Closed set of movement kinds
// =============================================================================

type Kind string

const (
	KindLoad     Kind = "load"
	KindSale     Kind = "sale"
	KindRestock  Kind = "restock"
	KindShortage Kind = "shortage"
)

// Kinds lists every valid kind in ledger order of appearance in reports.
var Kinds = []Kind{KindLoad, KindRestock, KindSale, KindShortage}

var kindAliases = map[string]Kind{
	"load":       KindLoad,
	"carga":      KindLoad,
	"sale":       KindSale,
	"venta":      KindSale,
	"restock":    KindRestock,
	"reposicion": KindRestock,
	"shortage":   KindShortage,
	"faltante":   KindShortage,
}

// ParseKind maps a wire name (English or the legacy Spanish names) to a Kind.
// Unknown names are rejected instead of being silently ignored.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindLoad, KindSale, KindRestock, KindShortage:
		return true
	}
	return false
}

// RequiresStore reports whether movements of this kind must reference a store.
func (k Kind) RequiresStore() bool { return k == KindSale || k == KindRestock }

func (k Kind) String() string { return string(k) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type StoreID string
type NeighborhoodID string
type MovementID string

// =============================================================================
// MOVEMENT - Immutable ledger entry
// =============================================================================

// StoreRef is the store data inlined into a movement when it is read back
// from the ledger. NeighborhoodID is resolved from the catalog.
type StoreRef struct {
	ID             StoreID
	NeighborhoodID NeighborhoodID
}

type LineItem struct {
	ProductID    ProductID
	Quantity     int
	TotalCost    *decimal.Decimal // load lines only
	TotalRevenue *decimal.Decimal // sale lines only
}

// Qty returns the line quantity as a decimal.
func (li LineItem) Qty() decimal.Decimal { return decimal.NewFromInt(int64(li.Quantity)) }

type Movement struct {
	ID       MovementID
	Seq      int64 // insertion order, tie-breaker for same-day movements
	Date     TimePoint
	Kind     Kind
	Store    *StoreRef
	Lines    []LineItem
	Discount decimal.Decimal
	Notes    string

	CreatedAt TimePoint
}

// StoreID returns the referenced store or "" when the movement has none.
func (m Movement) StoreID() StoreID {
	if m.Store == nil {
		return ""
	}
	return m.Store.ID
}

// NeighborhoodID returns the store's neighborhood or "".
func (m Movement) NeighborhoodID() NeighborhoodID {
	if m.Store == nil {
		return ""
	}
	return m.Store.NeighborhoodID
}

// TotalQuantity sums line quantities.
func (m Movement) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, li := range m.Lines {
		total = total.Add(li.Qty())
	}
	return total
}

// GrossCost sums line TotalCost (missing values count as zero).
func (m Movement) GrossCost() decimal.Decimal {
	total := decimal.Zero
	for _, li := range m.Lines {
		if li.TotalCost != nil {
			total = total.Add(*li.TotalCost)
		}
	}
	return total
}

// GrossRevenue sums line TotalRevenue (missing values count as zero).
func (m Movement) GrossRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, li := range m.Lines {
		if li.TotalRevenue != nil {
			total = total.Add(*li.TotalRevenue)
		}
	}
	return total
}

// NetOfDiscount subtracts the movement discount, floored at zero.
func (m Movement) NetOfDiscount(gross decimal.Decimal) decimal.Decimal {
	net := gross.Sub(m.Discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// =============================================================================
// CATALOG
// =============================================================================

type Product struct {
	ID          ProductID
	Name        string
	ListPrice   decimal.Decimal
	Description string
	CreatedAt   TimePoint
}

type Neighborhood struct {
	ID        NeighborhoodID
	Name      string
	Notes     string
	CreatedAt TimePoint
}

type Store struct {
	ID             StoreID
	Name           string
	Street         string
	Number         string
	NeighborhoodID NeighborhoodID
	Manager        string
	Phone          string
	ContractStart  TimePoint
	Notes          string
	CreatedAt      TimePoint
}
