package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage"
)

// querier is satisfied by *Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	factoryColumns        = `id, pool_count`
	poolColumns           = `id, created_at_timestamp, created_at_block_number, instant_swap_count, continuous_swap_set_count, token_addresses`
	tokenColumns          = `id, symbol, name, decimals, total_supply::text, underlying_token, instant_swap_count, continuous_swap_set_count, total_liquidity::text`
	pooledTokenColumns    = `id, pool_id, token_id, reserve::text, volume::text`
	userTokenColumns      = `id, user_id, token_id, created_at_block_number, created_at_timestamp`
	transactionColumns    = `id, block_number, timestamp`
	instantSwapColumns    = `id, pool_id, user_id, transaction_id, token_in_id, token_out_id, amount_in::text, amount_out::text, timestamp`
	continuousSwapColumns = `id, pool_id, user_id, token_in_id, token_out_id, transaction_id, rate_in::text, current_rate_out::text, total_out_until_last_swap::text, timestamp, timestamp_last_swap, min_out::text, max_out::text`
)

func loadFactory(ctx context.Context, q querier, id string) (*domain.StreamSwapFactory, error) {
	var f domain.StreamSwapFactory
	err := q.QueryRow(ctx, `SELECT `+factoryColumns+` FROM factories WHERE id = $1`, id).
		Scan(&f.ID, &f.PoolCount)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func loadPool(ctx context.Context, q querier, id string) (*domain.Pool, error) {
	return scanPool(q.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = $1`, id))
}

func scanPool(row pgx.Row) (*domain.Pool, error) {
	var p domain.Pool
	err := row.Scan(
		&p.ID,
		&p.CreatedAtTimestamp,
		&p.CreatedAtBlockNumber,
		&p.InstantSwapCount,
		&p.ContinuousSwapSetCount,
		&p.TokenAddresses,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadToken(ctx context.Context, q querier, id string) (*domain.Token, error) {
	return scanToken(q.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, id))
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		t         domain.Token
		supply    *string
		liquidity string
	)
	err := row.Scan(
		&t.ID,
		&t.Symbol,
		&t.Name,
		&t.Decimals,
		&supply,
		&t.UnderlyingToken,
		&t.InstantSwapCount,
		&t.ContinuousSwapSetCount,
		&liquidity,
	)
	if err != nil {
		return nil, err
	}

	var d numDecoder
	t.TotalSupply = d.bigInt(supply)
	t.TotalLiquidity = d.decimal(liquidity)
	if d.err != nil {
		return nil, d.err
	}
	return &t, nil
}

func loadPooledToken(ctx context.Context, q querier, id string) (*domain.PooledToken, error) {
	return scanPooledToken(q.QueryRow(ctx, `SELECT `+pooledTokenColumns+` FROM pooled_tokens WHERE id = $1`, id))
}

func scanPooledToken(row pgx.Row) (*domain.PooledToken, error) {
	var (
		p               domain.PooledToken
		reserve, volume string
	)
	if err := row.Scan(&p.ID, &p.PoolID, &p.TokenID, &reserve, &volume); err != nil {
		return nil, err
	}

	var d numDecoder
	p.Reserve = d.decimal(reserve)
	p.Volume = d.decimal(volume)
	if d.err != nil {
		return nil, d.err
	}
	return &p, nil
}

func loadUser(ctx context.Context, q querier, id string) (*domain.User, error) {
	var u domain.User
	if err := q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, id).Scan(&u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

func loadUserToken(ctx context.Context, q querier, id string) (*domain.UserToken, error) {
	var u domain.UserToken
	err := q.QueryRow(ctx, `SELECT `+userTokenColumns+` FROM user_tokens WHERE id = $1`, id).
		Scan(&u.ID, &u.UserID, &u.TokenID, &u.CreatedAtBlockNumber, &u.CreatedAtTimestamp)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func loadTransaction(ctx context.Context, q querier, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.BlockNumber, &t.Timestamp)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func loadInstantSwap(ctx context.Context, q querier, id string) (*domain.InstantSwap, error) {
	var (
		s                   domain.InstantSwap
		amountIn, amountOut string
	)
	err := q.QueryRow(ctx, `SELECT `+instantSwapColumns+` FROM instant_swaps WHERE id = $1`, id).Scan(
		&s.ID,
		&s.PoolID,
		&s.UserID,
		&s.TransactionID,
		&s.TokenInID,
		&s.TokenOutID,
		&amountIn,
		&amountOut,
		&s.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	var d numDecoder
	s.AmountIn = d.decimal(amountIn)
	s.AmountOut = d.decimal(amountOut)
	if d.err != nil {
		return nil, d.err
	}
	return &s, nil
}

func loadContinuousSwap(ctx context.Context, q querier, id string) (*domain.ContinuousSwap, error) {
	return scanContinuousSwap(q.QueryRow(ctx, `SELECT `+continuousSwapColumns+` FROM continuous_swaps WHERE id = $1`, id))
}

func scanContinuousSwap(row pgx.Row) (*domain.ContinuousSwap, error) {
	var (
		s                         domain.ContinuousSwap
		rateIn, rateOut, totalOut string
		minOut, maxOut            string
	)
	err := row.Scan(
		&s.ID,
		&s.PoolID,
		&s.UserID,
		&s.TokenInID,
		&s.TokenOutID,
		&s.TransactionID,
		&rateIn,
		&rateOut,
		&totalOut,
		&s.Timestamp,
		&s.TimestampLastSwap,
		&minOut,
		&maxOut,
	)
	if err != nil {
		return nil, err
	}

	var d numDecoder
	s.RateIn = d.decimal(rateIn)
	s.CurrentRateOut = d.decimal(rateOut)
	s.TotalOutUntilLastSwap = d.decimal(totalOut)
	s.MinOut = d.decimal(minOut)
	s.MaxOut = d.decimal(maxOut)
	if d.err != nil {
		return nil, d.err
	}
	return &s, nil
}

func loadProcessedEvent(ctx context.Context, q querier, id string) (*domain.ProcessedEvent, error) {
	var p domain.ProcessedEvent
	err := q.QueryRow(ctx, `SELECT id, block_number FROM processed_events WHERE id = $1`, id).
		Scan(&p.ID, &p.BlockNumber)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// upsertEntity writes the full row of an entity, replacing any existing one.
func upsertEntity(ctx context.Context, db execer, e domain.Entity) error {
	var err error
	switch v := e.(type) {
	case *domain.StreamSwapFactory:
		_, err = db.Exec(ctx, `
			INSERT INTO factories (id, pool_count) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET pool_count = EXCLUDED.pool_count
		`, v.ID, v.PoolCount)
	case *domain.Pool:
		addrs := v.TokenAddresses
		if addrs == nil {
			addrs = []string{}
		}
		_, err = db.Exec(ctx, `
			INSERT INTO pools (`+poolColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				created_at_timestamp = EXCLUDED.created_at_timestamp,
				created_at_block_number = EXCLUDED.created_at_block_number,
				instant_swap_count = EXCLUDED.instant_swap_count,
				continuous_swap_set_count = EXCLUDED.continuous_swap_set_count,
				token_addresses = EXCLUDED.token_addresses
		`, v.ID, v.CreatedAtTimestamp, v.CreatedAtBlockNumber, v.InstantSwapCount, v.ContinuousSwapSetCount, addrs)
	case *domain.Token:
		_, err = db.Exec(ctx, `
			INSERT INTO tokens (
				id, symbol, name, decimals, total_supply, underlying_token,
				instant_swap_count, continuous_swap_set_count, total_liquidity
			) VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8, $9::text::numeric)
			ON CONFLICT (id) DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				total_supply = EXCLUDED.total_supply,
				underlying_token = EXCLUDED.underlying_token,
				instant_swap_count = EXCLUDED.instant_swap_count,
				continuous_swap_set_count = EXCLUDED.continuous_swap_set_count,
				total_liquidity = EXCLUDED.total_liquidity
		`, v.ID, v.Symbol, v.Name, v.Decimals, bigText(v.TotalSupply), v.UnderlyingToken,
			v.InstantSwapCount, v.ContinuousSwapSetCount, numText(v.TotalLiquidity))
	case *domain.PooledToken:
		_, err = db.Exec(ctx, `
			INSERT INTO pooled_tokens (id, pool_id, token_id, reserve, volume)
			VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric)
			ON CONFLICT (id) DO UPDATE SET
				reserve = EXCLUDED.reserve,
				volume = EXCLUDED.volume
		`, v.ID, v.PoolID, v.TokenID, numText(v.Reserve), numText(v.Volume))
	case *domain.User:
		_, err = db.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, v.ID)
	case *domain.UserToken:
		_, err = db.Exec(ctx, `
			INSERT INTO user_tokens (`+userTokenColumns+`) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, v.ID, v.UserID, v.TokenID, v.CreatedAtBlockNumber, v.CreatedAtTimestamp)
	case *domain.Transaction:
		_, err = db.Exec(ctx, `
			INSERT INTO transactions (`+transactionColumns+`) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, v.ID, v.BlockNumber, v.Timestamp)
	case *domain.InstantSwap:
		_, err = db.Exec(ctx, `
			INSERT INTO instant_swaps (
				id, pool_id, user_id, transaction_id, token_in_id, token_out_id,
				amount_in, amount_out, timestamp
			) VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8::text::numeric, $9)
			ON CONFLICT (id) DO UPDATE SET
				amount_in = EXCLUDED.amount_in,
				amount_out = EXCLUDED.amount_out,
				timestamp = EXCLUDED.timestamp
		`, v.ID, v.PoolID, v.UserID, v.TransactionID, v.TokenInID, v.TokenOutID,
			numText(v.AmountIn), numText(v.AmountOut), v.Timestamp)
	case *domain.ContinuousSwap:
		_, err = db.Exec(ctx, `
			INSERT INTO continuous_swaps (
				id, pool_id, user_id, token_in_id, token_out_id, transaction_id,
				rate_in, current_rate_out, total_out_until_last_swap,
				timestamp, timestamp_last_swap, min_out, max_out
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7::text::numeric, $8::text::numeric, $9::text::numeric,
				$10, $11, $12::text::numeric, $13::text::numeric
			)
			ON CONFLICT (id) DO UPDATE SET
				transaction_id = EXCLUDED.transaction_id,
				rate_in = EXCLUDED.rate_in,
				current_rate_out = EXCLUDED.current_rate_out,
				total_out_until_last_swap = EXCLUDED.total_out_until_last_swap,
				timestamp = EXCLUDED.timestamp,
				timestamp_last_swap = EXCLUDED.timestamp_last_swap,
				min_out = EXCLUDED.min_out,
				max_out = EXCLUDED.max_out
		`, v.ID, v.PoolID, v.UserID, v.TokenInID, v.TokenOutID, v.TransactionID,
			numText(v.RateIn), numText(v.CurrentRateOut), numText(v.TotalOutUntilLastSwap),
			v.Timestamp, v.TimestampLastSwap, numText(v.MinOut), numText(v.MaxOut))
	case *domain.ProcessedEvent:
		_, err = db.Exec(ctx, `
			INSERT INTO processed_events (id, block_number) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, v.ID, v.BlockNumber)
	default:
		return fmt.Errorf("%w: %T", storage.ErrUnknownKind, e)
	}
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", e.Kind(), e.Key(), err)
	}
	return nil
}
