package memory

import (
	"context"
	"sort"
	"sync"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu      sync.RWMutex
	data    map[domain.EntityKind]map[string]domain.Entity // kind -> id -> entity
	cursors map[string]int64
}

// NewStore creates a new in-memory entity store.
func NewStore() *Store {
	return &Store{
		data:    make(map[domain.EntityKind]map[string]domain.Entity),
		cursors: make(map[string]int64),
	}
}

// Load retrieves an entity by kind and ID. Returns ErrNotFound if not exists.
func (s *Store) Load(_ context.Context, kind domain.EntityKind, id string) (domain.Entity, error) {
	if id == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[kind][id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return domain.Clone(e), nil
}

// Commit applies all mutations atomically under the write lock.
func (s *Store) Commit(_ context.Context, b *storage.Batch) error {
	if b == nil {
		return storage.ErrInvalidInput
	}

	// Validate before touching data so a bad batch leaves no partial state
	for _, m := range b.Mutations() {
		if m.ID == "" || m.Kind == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range b.Mutations() {
		if m.IsDelete() {
			delete(s.data[m.Kind], m.ID)
			continue
		}
		table, ok := s.data[m.Kind]
		if !ok {
			table = make(map[string]domain.Entity)
			s.data[m.Kind] = table
		}
		table[m.ID] = domain.Clone(m.Entity)
	}
	return nil
}

// Count returns the number of stored entities of a kind.
func (s *Store) Count(kind domain.EntityKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[kind])
}

// ListPools returns all pools ordered by creation block, then ID.
func (s *Store) ListPools(_ context.Context) ([]*domain.Pool, error) {
	pools := list[*domain.Pool](s, domain.KindPool, nil)
	sort.Slice(pools, func(i, j int) bool {
		if pools[i].CreatedAtBlockNumber != pools[j].CreatedAtBlockNumber {
			return pools[i].CreatedAtBlockNumber < pools[j].CreatedAtBlockNumber
		}
		return pools[i].ID < pools[j].ID
	})
	return pools, nil
}

// ListTokens returns all tokens ordered by ID.
func (s *Store) ListTokens(_ context.Context) ([]*domain.Token, error) {
	tokens := list[*domain.Token](s, domain.KindToken, nil)
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens, nil
}

// ListPooledTokens returns the token ledgers of a pool ordered by token ID.
func (s *Store) ListPooledTokens(_ context.Context, poolID string) ([]*domain.PooledToken, error) {
	pts := list(s, domain.KindPooledToken, func(p *domain.PooledToken) bool {
		return p.PoolID == poolID
	})
	sort.Slice(pts, func(i, j int) bool { return pts[i].TokenID < pts[j].TokenID })
	return pts, nil
}

// ListContinuousSwaps returns streaming positions matching the filter ordered by ID.
func (s *Store) ListContinuousSwaps(_ context.Context, filter storage.ContinuousSwapFilter) ([]*domain.ContinuousSwap, error) {
	swaps := list(s, domain.KindContinuousSwap, func(cs *domain.ContinuousSwap) bool {
		if filter.UserID != "" && cs.UserID != filter.UserID {
			return false
		}
		if filter.PoolID != "" && cs.PoolID != filter.PoolID {
			return false
		}
		return true
	})
	sort.Slice(swaps, func(i, j int) bool { return swaps[i].ID < swaps[j].ID })
	return swaps, nil
}

// GetCursor returns the last processed block for the stream.
func (s *Store) GetCursor(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.cursors[name]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return block, nil
}

// SetCursor saves the last processed block for the stream.
func (s *Store) SetCursor(_ context.Context, name string, block int64) error {
	if name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[name] = block
	return nil
}

// list returns clones of every entity of the kind accepted by keep.
func list[T domain.Entity](s *Store, kind domain.EntityKind, keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0, len(s.data[kind]))
	for _, e := range s.data[kind] {
		v, ok := domain.Clone(e).(T)
		if !ok {
			continue
		}
		if keep != nil && !keep(v) {
			continue
		}
		result = append(result, v)
	}
	return result
}

var _ storage.Store = (*Store)(nil)
