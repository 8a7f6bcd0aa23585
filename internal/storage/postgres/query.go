package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage"
)

// ListPools returns all pools ordered by creation block, then ID.
func (s *Store) ListPools(ctx context.Context) ([]*domain.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+poolColumns+` FROM pools
		ORDER BY created_at_block_number ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return collect(rows, scanPool)
}

// ListTokens returns all tokens ordered by ID.
func (s *Store) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return collect(rows, scanToken)
}

// ListPooledTokens returns the token ledgers of a pool ordered by token ID.
func (s *Store) ListPooledTokens(ctx context.Context, poolID string) ([]*domain.PooledToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pooledTokenColumns+` FROM pooled_tokens
		WHERE pool_id = $1
		ORDER BY token_id ASC
	`, poolID)
	if err != nil {
		return nil, fmt.Errorf("list pooled tokens: %w", err)
	}
	return collect(rows, scanPooledToken)
}

// ListContinuousSwaps returns streaming positions matching the filter ordered by ID.
// Empty filter fields match everything.
func (s *Store) ListContinuousSwaps(ctx context.Context, filter storage.ContinuousSwapFilter) ([]*domain.ContinuousSwap, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+continuousSwapColumns+` FROM continuous_swaps
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR pool_id = $2)
		ORDER BY id ASC
	`, filter.UserID, filter.PoolID)
	if err != nil {
		return nil, fmt.Errorf("list continuous swaps: %w", err)
	}
	return collect(rows, scanContinuousSwap)
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var result []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
