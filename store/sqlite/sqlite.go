/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Store (movements + catalog) and stats.Hydrator using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  ledger.MovementStore: Movement ledger with (date, seq) ordering
  ledger.CatalogStore:  Products, stores, neighborhoods
  stats.Hydrator:       Batched label lookups for statistics rows

ORDERING:
  movements.seq is an AUTOINCREMENT key assigned on insert and never
  rewritten by updates, so same-day movements replay in insertion order
  and a corrected movement keeps its place.

REVISION:
  ledger_meta.revision is bumped in the same SQL transaction as every
  write. The statistics cache keys on it.

KEY TABLES:
  movements:      Ledger entries, line items as JSON
  products:       Catalog
  stores:         Catalog, carries neighborhood_id
  neighborhoods:  Catalog
  ledger_meta:    Single row with the revision counter

INDEXES:
  - idx_movements_date_seq: Ordered ledger query (hot path)
  - idx_movements_store: Stock queries per store

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := stats.NewService(store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/stats"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.Repository = (*Store)(nil)
	_ stats.Hydrator    = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Movements (ledger)
	CREATE TABLE IF NOT EXISTS movements (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		store_id TEXT,
		discount TEXT NOT NULL DEFAULT '0',
		lines_json TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- Ordered ledger query (hot path)
	CREATE INDEX IF NOT EXISTS idx_movements_date_seq
		ON movements(date, seq);
	CREATE INDEX IF NOT EXISTS idx_movements_store
		ON movements(store_id) WHERE store_id IS NOT NULL;

	-- Catalog
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		list_price TEXT NOT NULL DEFAULT '0',
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS neighborhoods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		street TEXT,
		number TEXT,
		neighborhood_id TEXT,
		manager TEXT,
		phone TEXT,
		contract_start TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stores_neighborhood
		ON stores(neighborhood_id);

	-- Revision counter
	CREATE TABLE IF NOT EXISTS ledger_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		revision INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO ledger_meta (id, revision) VALUES (1, 0);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITE TRANSACTIONS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// write runs fn in a SQL transaction and bumps the revision before commit.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, "UPDATE ledger_meta SET revision = revision + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump revision: %w", err)
	}
	return sqlTx.Commit()
}

// deleteByID removes one row and maps "no rows" to notFound.
func deleteByID(ctx context.Context, db execer, table, id string, notFound error) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Revision returns the current ledger revision.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rev int64
	err := s.db.QueryRowContext(ctx, "SELECT revision FROM ledger_meta WHERE id = 1").Scan(&rev)
	return rev, err
}

// =============================================================================
// MOVEMENT STORE (ledger.MovementStore interface)
// =============================================================================

// lineRecord is the JSON shape of a line item in movements.lines_json.
type lineRecord struct {
	ProductID    string           `json:"product"`
	Quantity     int              `json:"quantity"`
	TotalCost    *decimal.Decimal `json:"totalCost,omitempty"`
	TotalRevenue *decimal.Decimal `json:"totalRevenue,omitempty"`
}

func encodeLines(lines []ledger.LineItem) (string, error) {
	recs := make([]lineRecord, len(lines))
	for i, li := range lines {
		recs[i] = lineRecord{
			ProductID:    string(li.ProductID),
			Quantity:     li.Quantity,
			TotalCost:    li.TotalCost,
			TotalRevenue: li.TotalRevenue,
		}
	}
	b, err := json.Marshal(recs)
	return string(b), err
}

func decodeLines(raw string) ([]ledger.LineItem, error) {
	var recs []lineRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, err
	}
	lines := make([]ledger.LineItem, len(recs))
	for i, r := range recs {
		lines[i] = ledger.LineItem{
			ProductID:    ledger.ProductID(r.ProductID),
			Quantity:     r.Quantity,
			TotalCost:    r.TotalCost,
			TotalRevenue: r.TotalRevenue,
		}
	}
	return lines, nil
}

// CreateMovement appends a movement and assigns its Seq.
func (s *Store) CreateMovement(ctx context.Context, m *ledger.Movement) error {
	linesJSON, err := encodeLines(m.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = ledger.Today()
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO movements (id, date, kind, store_id, discount, lines_json, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			string(m.ID),
			m.Date.String(),
			string(m.Kind),
			nullString(string(m.StoreID())),
			m.Discount.String(),
			linesJSON,
			m.Notes,
			m.CreatedAt.String(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: movement %s already exists", ledger.ErrInvalidMovement, m.ID)
			}
			return fmt.Errorf("failed to insert movement: %w", err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m.Seq = seq
		return nil
	})
}

// UpdateMovement rewrites a movement in place. seq and created_at are kept.
func (s *Store) UpdateMovement(ctx context.Context, m ledger.Movement) error {
	linesJSON, err := encodeLines(m.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE movements
			SET date = ?, kind = ?, store_id = ?, discount = ?, lines_json = ?, notes = ?
			WHERE id = ?
		`,
			m.Date.String(),
			string(m.Kind),
			nullString(string(m.StoreID())),
			m.Discount.String(),
			linesJSON,
			m.Notes,
			string(m.ID),
		)
		if err != nil {
			return fmt.Errorf("failed to update movement: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ledger.ErrMovementNotFound
		}
		return nil
	})
}

func (s *Store) DeleteMovement(ctx context.Context, id ledger.MovementID) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return deleteByID(ctx, tx, "movements", string(id), ledger.ErrMovementNotFound)
	})
}

const movementColumns = `
	SELECT m.seq, m.id, m.date, m.kind, m.store_id, s.neighborhood_id,
	       m.discount, m.lines_json, m.notes, m.created_at
	FROM movements m
	LEFT JOIN stores s ON s.id = m.store_id
`

// ListMovements returns movements dated before `before`, in ledger order.
func (s *Store) ListMovements(ctx context.Context, before ledger.TimePoint) ([]ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryMovements(ctx, movementColumns+`
		WHERE m.date < ?
		ORDER BY m.date ASC, m.seq ASC
	`, before.String())
}

// Movements returns the whole ledger in ledger order.
func (s *Store) Movements(ctx context.Context) ([]ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryMovements(ctx, movementColumns+`
		ORDER BY m.date ASC, m.seq ASC
	`)
}

func (s *Store) GetMovement(ctx context.Context, id ledger.MovementID) (*ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryMovements(ctx, movementColumns+`WHERE m.id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ledger.ErrMovementNotFound
	}
	return &found[0], nil
}

func (s *Store) queryMovements(ctx context.Context, query string, args ...any) ([]ledger.Movement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	movements := []ledger.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	return movements, rows.Err()
}

func scanMovement(rows *sql.Rows) (ledger.Movement, error) {
	var (
		m              ledger.Movement
		id, kind       string
		date           string
		storeID        sql.NullString
		neighborhoodID sql.NullString
		discount       string
		linesJSON      string
		notes          sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&m.Seq, &id, &date, &kind, &storeID, &neighborhoodID,
		&discount, &linesJSON, &notes, &createdAt,
	)
	if err != nil {
		return m, fmt.Errorf("failed to scan movement: %w", err)
	}

	m.ID = ledger.MovementID(id)
	m.Kind = ledger.Kind(kind)
	m.Notes = notes.String
	if m.Date, err = ledger.ParseTimePoint(date); err != nil {
		return m, fmt.Errorf("movement %s: bad date %q: %w", id, date, err)
	}
	m.CreatedAt, _ = ledger.ParseTimePoint(createdAt)
	if m.Discount, err = decimal.NewFromString(discount); err != nil {
		return m, fmt.Errorf("movement %s: bad discount %q: %w", id, discount, err)
	}
	if storeID.Valid && storeID.String != "" {
		m.Store = &ledger.StoreRef{
			ID:             ledger.StoreID(storeID.String),
			NeighborhoodID: ledger.NeighborhoodID(neighborhoodID.String),
		}
	}
	if m.Lines, err = decodeLines(linesJSON); err != nil {
		return m, fmt.Errorf("movement %s: bad lines: %w", id, err)
	}

	return m, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *Store) SaveProduct(ctx context.Context, p ledger.Product) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, list_price, description, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				list_price = excluded.list_price,
				description = excluded.description
		`,
			string(p.ID), p.Name, p.ListPrice.String(), p.Description, createdAt(p.CreatedAt),
		)
		return err
	})
}

func (s *Store) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryProducts(ctx, "SELECT id, name, list_price, description, created_at FROM products WHERE id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ledger.ErrProductNotFound
	}
	return &found[0], nil
}

func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProducts(ctx, "SELECT id, name, list_price, description, created_at FROM products ORDER BY name")
}

func (s *Store) DeleteProduct(ctx context.Context, id ledger.ProductID) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return deleteByID(ctx, tx, "products", string(id), ledger.ErrProductNotFound)
	})
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]ledger.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []ledger.Product{}
	for rows.Next() {
		var (
			p                  ledger.Product
			id, price, created string
			description        sql.NullString
		)
		if err := rows.Scan(&id, &p.Name, &price, &description, &created); err != nil {
			return nil, err
		}
		p.ID = ledger.ProductID(id)
		p.ListPrice, _ = decimal.NewFromString(price)
		p.Description = description.String
		p.CreatedAt, _ = ledger.ParseTimePoint(created)
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// NEIGHBORHOODS
// =============================================================================

func (s *Store) SaveNeighborhood(ctx context.Context, n ledger.Neighborhood) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO neighborhoods (id, name, notes, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				notes = excluded.notes
		`,
			string(n.ID), n.Name, n.Notes, createdAt(n.CreatedAt),
		)
		return err
	})
}

func (s *Store) GetNeighborhood(ctx context.Context, id ledger.NeighborhoodID) (*ledger.Neighborhood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryNeighborhoods(ctx, "SELECT id, name, notes, created_at FROM neighborhoods WHERE id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ledger.ErrNeighborhoodNotFound
	}
	return &found[0], nil
}

func (s *Store) ListNeighborhoods(ctx context.Context) ([]ledger.Neighborhood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryNeighborhoods(ctx, "SELECT id, name, notes, created_at FROM neighborhoods ORDER BY name")
}

func (s *Store) DeleteNeighborhood(ctx context.Context, id ledger.NeighborhoodID) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return deleteByID(ctx, tx, "neighborhoods", string(id), ledger.ErrNeighborhoodNotFound)
	})
}

func (s *Store) queryNeighborhoods(ctx context.Context, query string, args ...any) ([]ledger.Neighborhood, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.Neighborhood{}
	for rows.Next() {
		var (
			n           ledger.Neighborhood
			id, created string
			notes       sql.NullString
		)
		if err := rows.Scan(&id, &n.Name, &notes, &created); err != nil {
			return nil, err
		}
		n.ID = ledger.NeighborhoodID(id)
		n.Notes = notes.String
		n.CreatedAt, _ = ledger.ParseTimePoint(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

// =============================================================================
// STORES
// =============================================================================

const storeColumns = `SELECT id, name, street, number, neighborhood_id, manager, phone, contract_start, notes, created_at FROM stores`

func (s *Store) SaveStore(ctx context.Context, st ledger.Store) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		contract := sql.NullString{}
		if !st.ContractStart.IsZero() {
			contract = sql.NullString{String: st.ContractStart.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stores (id, name, street, number, neighborhood_id, manager, phone, contract_start, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				street = excluded.street,
				number = excluded.number,
				neighborhood_id = excluded.neighborhood_id,
				manager = excluded.manager,
				phone = excluded.phone,
				contract_start = excluded.contract_start,
				notes = excluded.notes
		`,
			string(st.ID), st.Name, st.Street, st.Number,
			nullString(string(st.NeighborhoodID)),
			st.Manager, st.Phone, contract, st.Notes, createdAt(st.CreatedAt),
		)
		return err
	})
}

func (s *Store) GetStore(ctx context.Context, id ledger.StoreID) (*ledger.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryStores(ctx, storeColumns+" WHERE id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ledger.ErrStoreNotFound
	}
	return &found[0], nil
}

func (s *Store) ListStores(ctx context.Context) ([]ledger.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryStores(ctx, storeColumns+" ORDER BY name")
}

func (s *Store) DeleteStore(ctx context.Context, id ledger.StoreID) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return deleteByID(ctx, tx, "stores", string(id), ledger.ErrStoreNotFound)
	})
}

func (s *Store) queryStores(ctx context.Context, query string, args ...any) ([]ledger.Store, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.Store{}
	for rows.Next() {
		var (
			st                                    ledger.Store
			id, created                           string
			street, number, neighborhood, manager sql.NullString
			phone, contract, notes                sql.NullString
		)
		if err := rows.Scan(&id, &st.Name, &street, &number, &neighborhood, &manager, &phone, &contract, &notes, &created); err != nil {
			return nil, err
		}
		st.ID = ledger.StoreID(id)
		st.Street = street.String
		st.Number = number.String
		st.NeighborhoodID = ledger.NeighborhoodID(neighborhood.String)
		st.Manager = manager.String
		st.Phone = phone.String
		st.Notes = notes.String
		if contract.Valid {
			st.ContractStart, _ = ledger.ParseTimePoint(contract.String)
		}
		st.CreatedAt, _ = ledger.ParseTimePoint(created)
		out = append(out, st)
	}
	return out, rows.Err()
}

// =============================================================================
// LABELS (stats.Hydrator interface)
// =============================================================================

// Labels resolves row keys with one query per dimension.
func (s *Store) Labels(ctx context.Context, dim stats.Dimension, keys []string) (map[string]stats.Label, error) {
	if dim == stats.DimKind {
		return stats.KindLabels(keys), nil
	}
	out := make(map[string]stats.Label, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var query string
	switch dim {
	case stats.DimProduct:
		query = "SELECT id, name, '' FROM products WHERE id IN (%s)"
	case stats.DimStore:
		query = `SELECT s.id, s.name, COALESCE(n.name, '')
			FROM stores s LEFT JOIN neighborhoods n ON n.id = s.neighborhood_id
			WHERE s.id IN (%s)`
	case stats.DimNeighborhood:
		query = "SELECT id, name, '' FROM neighborhoods WHERE id IN (%s)"
	default:
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(query, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var label stats.Label
		if err := rows.Scan(&id, &label.Name, &label.Neighborhood); err != nil {
			return nil, err
		}
		out[id] = label
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo). The revision keeps increasing.
func (s *Store) Reset(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		tables := []string{"movements", "stores", "neighborhoods", "products"}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func createdAt(tp ledger.TimePoint) string {
	if tp.IsZero() {
		return ledger.At(time.Now()).String()
	}
	return tp.String()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
