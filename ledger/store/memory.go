// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	movements     []ledger.Movement // ascending by (Date, Seq)
	nextSeq       int64
	revision      int64
	products      map[ledger.ProductID]ledger.Product
	stores        map[ledger.StoreID]ledger.Store
	neighborhoods map[ledger.NeighborhoodID]ledger.Neighborhood
}

var _ ledger.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		products:      make(map[ledger.ProductID]ledger.Product),
		stores:        make(map[ledger.StoreID]ledger.Store),
		neighborhoods: make(map[ledger.NeighborhoodID]ledger.Neighborhood),
	}
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func (m *Memory) CreateMovement(_ context.Context, mv *ledger.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	mv.Seq = m.nextSeq
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = ledger.Today()
	}
	m.insertLocked(*mv)
	m.revision++
	return nil
}

func (m *Memory) UpdateMovement(_ context.Context, mv ledger.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(mv.ID)
	if i < 0 {
		return ledger.ErrMovementNotFound
	}
	mv.Seq = m.movements[i].Seq
	mv.CreatedAt = m.movements[i].CreatedAt
	m.movements = append(m.movements[:i], m.movements[i+1:]...)
	m.insertLocked(mv)
	m.revision++
	return nil
}

func (m *Memory) DeleteMovement(_ context.Context, id ledger.MovementID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return ledger.ErrMovementNotFound
	}
	m.movements = append(m.movements[:i], m.movements[i+1:]...)
	m.revision++
	return nil
}

// insertLocked keeps movements sorted by (Date, Seq).
func (m *Memory) insertLocked(mv ledger.Movement) {
	i := sort.Search(len(m.movements), func(i int) bool {
		cur := m.movements[i]
		if cur.Date.Equal(mv.Date) {
			return cur.Seq > mv.Seq
		}
		return cur.Date.After(mv.Date)
	})
	m.movements = append(m.movements, ledger.Movement{})
	copy(m.movements[i+1:], m.movements[i:])
	m.movements[i] = mv
}

func (m *Memory) indexLocked(id ledger.MovementID) int {
	for i, mv := range m.movements {
		if mv.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) GetMovement(_ context.Context, id ledger.MovementID) (*ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexLocked(id)
	if i < 0 {
		return nil, ledger.ErrMovementNotFound
	}
	mv := m.withStoreLocked(m.movements[i])
	return &mv, nil
}

func (m *Memory) ListMovements(_ context.Context, before ledger.TimePoint) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Movement
	for _, mv := range m.movements {
		if !mv.Date.Before(before) {
			break
		}
		result = append(result, m.withStoreLocked(mv))
	}
	return result, nil
}

func (m *Memory) Movements(_ context.Context) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Movement, 0, len(m.movements))
	for _, mv := range m.movements {
		result = append(result, m.withStoreLocked(mv))
	}
	return result, nil
}

// withStoreLocked inlines the store's current neighborhood, like a join.
func (m *Memory) withStoreLocked(mv ledger.Movement) ledger.Movement {
	if mv.Store == nil {
		return mv
	}
	ref := ledger.StoreRef{ID: mv.Store.ID}
	if s, ok := m.stores[mv.Store.ID]; ok {
		ref.NeighborhoodID = s.NeighborhoodID
	}
	mv.Store = &ref
	return mv
}

func (m *Memory) Revision(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision, nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) SaveProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	m.revision++
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ledger.ErrProductNotFound
	}
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id ledger.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ledger.ErrProductNotFound
	}
	delete(m.products, id)
	m.revision++
	return nil
}

func (m *Memory) SaveStore(_ context.Context, s ledger.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[s.ID] = s
	m.revision++
	return nil
}

func (m *Memory) GetStore(_ context.Context, id ledger.StoreID) (*ledger.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, ledger.ErrStoreNotFound
	}
	return &s, nil
}

func (m *Memory) ListStores(_ context.Context) ([]ledger.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Store, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteStore(_ context.Context, id ledger.StoreID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[id]; !ok {
		return ledger.ErrStoreNotFound
	}
	delete(m.stores, id)
	m.revision++
	return nil
}

func (m *Memory) SaveNeighborhood(_ context.Context, n ledger.Neighborhood) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighborhoods[n.ID] = n
	m.revision++
	return nil
}

func (m *Memory) GetNeighborhood(_ context.Context, id ledger.NeighborhoodID) (*ledger.Neighborhood, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.neighborhoods[id]
	if !ok {
		return nil, ledger.ErrNeighborhoodNotFound
	}
	return &n, nil
}

func (m *Memory) ListNeighborhoods(_ context.Context) ([]ledger.Neighborhood, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Neighborhood, 0, len(m.neighborhoods))
	for _, n := range m.neighborhoods {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteNeighborhood(_ context.Context, id ledger.NeighborhoodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.neighborhoods[id]; !ok {
		return ledger.ErrNeighborhoodNotFound
	}
	delete(m.neighborhoods, id)
	m.revision++
	return nil
}

// Reset removes all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = nil
	m.products = make(map[ledger.ProductID]ledger.Product)
	m.stores = make(map[ledger.StoreID]ledger.Store)
	m.neighborhoods = make(map[ledger.NeighborhoodID]ledger.Neighborhood)
	m.revision++
	return nil
}
