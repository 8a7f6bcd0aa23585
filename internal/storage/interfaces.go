package storage

import (
	"context"

	"streamswap-indexer/internal/domain"
)

// EntityStore is the key-value entity store the indexer reads and writes.
type EntityStore interface {
	// Load retrieves an entity by kind and ID. Returns ErrNotFound if absent.
	Load(ctx context.Context, kind domain.EntityKind, id string) (domain.Entity, error)

	// Commit applies all mutations of the batch atomically.
	// Either every mutation is visible afterwards or none is.
	Commit(ctx context.Context, b *Batch) error
}

// ContinuousSwapFilter narrows ListContinuousSwaps. Empty fields match all.
type ContinuousSwapFilter struct {
	UserID string
	PoolID string
}

// QueryStore provides the read-side listings used by the query API and
// by address registry seeding.
type QueryStore interface {
	// ListPools returns all pools ordered by creation block, then ID.
	ListPools(ctx context.Context) ([]*domain.Pool, error)

	// ListTokens returns all tokens ordered by ID.
	ListTokens(ctx context.Context) ([]*domain.Token, error)

	// ListPooledTokens returns the token ledgers of a pool ordered by token ID.
	ListPooledTokens(ctx context.Context, poolID string) ([]*domain.PooledToken, error)

	// ListContinuousSwaps returns active streaming positions ordered by ID.
	ListContinuousSwaps(ctx context.Context, filter ContinuousSwapFilter) ([]*domain.ContinuousSwap, error)
}

// CursorStore persists the last processed block per named stream.
// This enables resumption after restarts without reprocessing.
type CursorStore interface {
	// GetCursor returns the last processed block. Returns ErrNotFound if none saved.
	GetCursor(ctx context.Context, name string) (int64, error)

	// SetCursor saves the last processed block.
	SetCursor(ctx context.Context, name string, block int64) error
}

// RollupSink receives time-bucketed rollup writes. It is write-only:
// nothing in the indexer reads rollup state back.
type RollupSink interface {
	// WriteBuckets adds the bucket counts to the aggregates.
	WriteBuckets(ctx context.Context, buckets []domain.RollupBucket) error
}

// Store is the full set of capabilities of a backing database.
type Store interface {
	EntityStore
	QueryStore
	CursorStore
}
