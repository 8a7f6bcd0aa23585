package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/storage"
)

// tables maps entity kinds to their table names.
var tables = map[domain.EntityKind]string{
	domain.KindFactory:        "factories",
	domain.KindPool:           "pools",
	domain.KindToken:          "tokens",
	domain.KindPooledToken:    "pooled_tokens",
	domain.KindUser:           "users",
	domain.KindUserToken:      "user_tokens",
	domain.KindTransaction:    "transactions",
	domain.KindInstantSwap:    "instant_swaps",
	domain.KindContinuousSwap: "continuous_swaps",
	domain.KindProcessedEvent: "processed_events",
}

// Store implements storage.Store using PostgreSQL.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Load retrieves an entity by kind and ID. Returns ErrNotFound if not exists.
func (s *Store) Load(ctx context.Context, kind domain.EntityKind, id string) (domain.Entity, error) {
	if id == "" {
		return nil, storage.ErrInvalidInput
	}

	var (
		e   domain.Entity
		err error
	)
	switch kind {
	case domain.KindFactory:
		e, err = loadFactory(ctx, s.pool, id)
	case domain.KindPool:
		e, err = loadPool(ctx, s.pool, id)
	case domain.KindToken:
		e, err = loadToken(ctx, s.pool, id)
	case domain.KindPooledToken:
		e, err = loadPooledToken(ctx, s.pool, id)
	case domain.KindUser:
		e, err = loadUser(ctx, s.pool, id)
	case domain.KindUserToken:
		e, err = loadUserToken(ctx, s.pool, id)
	case domain.KindTransaction:
		e, err = loadTransaction(ctx, s.pool, id)
	case domain.KindInstantSwap:
		e, err = loadInstantSwap(ctx, s.pool, id)
	case domain.KindContinuousSwap:
		e, err = loadContinuousSwap(ctx, s.pool, id)
	case domain.KindProcessedEvent:
		e, err = loadProcessedEvent(ctx, s.pool, id)
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownKind, kind)
	}
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return e, nil
}

// Commit applies all mutations in a single transaction.
func (s *Store) Commit(ctx context.Context, b *storage.Batch) (err error) {
	if b == nil {
		return storage.ErrInvalidInput
	}
	if b.Len() == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "commit", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range b.Mutations() {
		if m.ID == "" {
			return storage.ErrInvalidInput
		}
		if m.IsDelete() {
			err = deleteEntity(ctx, tx, m.Kind, m.ID)
		} else {
			err = upsertEntity(ctx, tx, m.Entity)
		}
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func deleteEntity(ctx context.Context, tx pgx.Tx, kind domain.EntityKind, id string) error {
	table, ok := tables[kind]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrUnknownKind, kind)
	}
	// Table names come from the fixed map above.
	if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

// GetCursor returns the last processed block for the stream.
func (s *Store) GetCursor(ctx context.Context, name string) (int64, error) {
	var block int64
	err := s.pool.QueryRow(ctx, `SELECT block FROM cursors WHERE name = $1`, name).Scan(&block)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get cursor: %w", err)
	}
	return block, nil
}

// SetCursor saves the last processed block for the stream.
func (s *Store) SetCursor(ctx context.Context, name string, block int64) error {
	if name == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cursors (name, block, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET block = EXCLUDED.block, updated_at = now()
	`, name, block)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
