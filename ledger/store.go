/*
store.go - Persistence interfaces for the movement ledger and catalog

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  MovementStore: Ledger persistence and the ordered ledger query
  CatalogStore:  Products, stores and neighborhoods
  Store:         Both of the above

ORDERING CONTRACT:
  Movement queries return movements ascending by (Date, Seq). Seq is the
  insertion order assigned by the store on create and is stable across
  updates, so a corrected movement keeps its place in the ledger.

REVISION:
  Every write bumps a monotonically increasing revision. Readers use it to
  detect that cached derived values (statistics) are stale.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - stats/service.go: Consumes ListMovements and Revision
  - validate.go: Consumes the catalog for reference checks
*/
package ledger

import "context"

// =============================================================================
// MOVEMENT STORE
// =============================================================================

type MovementStore interface {
	// ListMovements returns every movement dated strictly before `before`,
	// ascending by (Date, Seq), with store references inlined.
	ListMovements(ctx context.Context, before TimePoint) ([]Movement, error)

	// Movements returns the whole ledger ascending by (Date, Seq).
	Movements(ctx context.Context) ([]Movement, error)

	// GetMovement returns ErrMovementNotFound when the id is unknown.
	GetMovement(ctx context.Context, id MovementID) (*Movement, error)

	// CreateMovement persists m and assigns its Seq.
	CreateMovement(ctx context.Context, m *Movement) error

	// UpdateMovement replaces an existing movement, keeping its Seq.
	UpdateMovement(ctx context.Context, m Movement) error

	DeleteMovement(ctx context.Context, id MovementID) error

	// Revision returns a counter bumped on every ledger or catalog write.
	Revision(ctx context.Context) (int64, error)
}

// =============================================================================
// CATALOG STORE
// =============================================================================

type CatalogStore interface {
	SaveProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	DeleteProduct(ctx context.Context, id ProductID) error

	SaveStore(ctx context.Context, s Store) error
	GetStore(ctx context.Context, id StoreID) (*Store, error)
	ListStores(ctx context.Context) ([]Store, error)
	DeleteStore(ctx context.Context, id StoreID) error

	SaveNeighborhood(ctx context.Context, n Neighborhood) error
	GetNeighborhood(ctx context.Context, id NeighborhoodID) (*Neighborhood, error)
	ListNeighborhoods(ctx context.Context) ([]Neighborhood, error)
	DeleteNeighborhood(ctx context.Context, id NeighborhoodID) error
}

// Repository is the full persistence surface used by the server.
type Repository interface {
	MovementStore
	CatalogStore

	// Reset removes all data. Used by demo scenarios.
	Reset(ctx context.Context) error
}
