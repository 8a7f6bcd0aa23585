package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage"
	"streamswap-indexer/internal/storage/migrations"
)

func TestStore_CommitAndLoadAllKinds(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	supply, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	swap := &domain.ContinuousSwap{
		ID:                    "0xkey",
		PoolID:                "0xpool",
		UserID:                "0xuser",
		TokenInID:             "0xa",
		TokenOutID:            "0xb",
		TransactionID:         "0xtx",
		RateIn:                decimal.RequireFromString("0.000000000000000001"),
		CurrentRateOut:        decimal.RequireFromString("2.5"),
		TotalOutUntilLastSwap: decimal.RequireFromString("123456789.123456789123456789"),
		Timestamp:             1700000000,
		TimestampLastSwap:     1700000100,
		MinOut:                decimal.NewFromInt(1),
		MaxOut:                decimal.NewFromInt(10),
	}

	b := storage.NewBatch()
	b.Put(&domain.StreamSwapFactory{ID: "0xfactory", PoolCount: 1})
	b.Put(&domain.Pool{ID: "0xpool", CreatedAtTimestamp: 1700000000, CreatedAtBlockNumber: 10, TokenAddresses: []string{"0xa", "0xb"}})
	b.Put(&domain.Token{ID: "0xa", Symbol: "A", Name: "Token A", Decimals: 18, TotalSupply: supply, UnderlyingToken: "0x0000000000000000000000000000000000000000"})
	b.Put(&domain.PooledToken{ID: "0xa-0xpool", PoolID: "0xpool", TokenID: "0xa", Reserve: decimal.RequireFromString("1.5")})
	b.Put(&domain.User{ID: "0xuser"})
	b.Put(&domain.UserToken{ID: "0xuser-0xa", UserID: "0xuser", TokenID: "0xa", CreatedAtBlockNumber: 11, CreatedAtTimestamp: 1700000001})
	b.Put(&domain.Transaction{ID: "0xtx", BlockNumber: 11, Timestamp: 1700000001})
	b.Put(&domain.InstantSwap{ID: "0xtx-0", PoolID: "0xpool", UserID: "0xuser", TransactionID: "0xtx", TokenInID: "0xa", TokenOutID: "0xb", AmountIn: decimal.NewFromInt(2), AmountOut: decimal.NewFromInt(3), Timestamp: 1700000001})
	b.Put(swap)
	b.Put(&domain.ProcessedEvent{ID: "0xtx-0", BlockNumber: 11})

	require.NoError(t, store.Commit(ctx, b))

	factory, err := storage.Get[*domain.StreamSwapFactory](ctx, store, domain.KindFactory, "0xfactory")
	require.NoError(t, err)
	assert.Equal(t, int64(1), factory.PoolCount)

	p, err := storage.Get[*domain.Pool](ctx, store, domain.KindPool, "0xpool")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xa", "0xb"}, p.TokenAddresses)

	token, err := storage.Get[*domain.Token](ctx, store, domain.KindToken, "0xa")
	require.NoError(t, err)
	assert.Equal(t, 0, supply.Cmp(token.TotalSupply))
	assert.True(t, token.TotalLiquidity.IsZero())

	pt, err := storage.Get[*domain.PooledToken](ctx, store, domain.KindPooledToken, "0xa-0xpool")
	require.NoError(t, err)
	assert.True(t, pt.Reserve.Equal(decimal.RequireFromString("1.5")))

	got, err := storage.Get[*domain.ContinuousSwap](ctx, store, domain.KindContinuousSwap, "0xkey")
	require.NoError(t, err)
	assert.True(t, got.RateIn.Equal(swap.RateIn))
	assert.True(t, got.TotalOutUntilLastSwap.Equal(swap.TotalOutUntilLastSwap))
	assert.Equal(t, swap.TimestampLastSwap, got.TimestampLastSwap)

	is, err := storage.Get[*domain.InstantSwap](ctx, store, domain.KindInstantSwap, "0xtx-0")
	require.NoError(t, err)
	assert.True(t, is.AmountOut.Equal(decimal.NewFromInt(3)))

	_, err = store.Load(ctx, domain.KindProcessedEvent, "0xtx-0")
	assert.NoError(t, err)
}

func TestStore_UpsertAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	b := storage.NewBatch()
	b.Put(&domain.PooledToken{ID: "0xa-0xp", PoolID: "0xp", TokenID: "0xa", Volume: decimal.NewFromInt(1)})
	b.Put(&domain.ContinuousSwap{ID: "0xkey", PoolID: "0xp", UserID: "0xu", RateIn: decimal.NewFromInt(1)})
	require.NoError(t, store.Commit(ctx, b))

	b = storage.NewBatch()
	b.Put(&domain.PooledToken{ID: "0xa-0xp", PoolID: "0xp", TokenID: "0xa", Volume: decimal.NewFromInt(7)})
	b.Delete(domain.KindContinuousSwap, "0xkey")
	b.Delete(domain.KindContinuousSwap, "0xabsent")
	require.NoError(t, store.Commit(ctx, b))

	pt, err := storage.Get[*domain.PooledToken](ctx, store, domain.KindPooledToken, "0xa-0xp")
	require.NoError(t, err)
	assert.True(t, pt.Volume.Equal(decimal.NewFromInt(7)))

	_, err = store.Load(ctx, domain.KindContinuousSwap, "0xkey")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_LoadNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewStore(pool).Load(context.Background(), domain.KindToken, "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ListQueries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	b := storage.NewBatch()
	b.Put(&domain.Pool{ID: "0xp2", CreatedAtBlockNumber: 5})
	b.Put(&domain.Pool{ID: "0xp1", CreatedAtBlockNumber: 9})
	b.Put(&domain.PooledToken{ID: "0xb-0xp1", PoolID: "0xp1", TokenID: "0xb"})
	b.Put(&domain.PooledToken{ID: "0xa-0xp1", PoolID: "0xp1", TokenID: "0xa"})
	b.Put(&domain.PooledToken{ID: "0xa-0xp2", PoolID: "0xp2", TokenID: "0xa"})
	b.Put(&domain.ContinuousSwap{ID: "0x1", PoolID: "0xp1", UserID: "0xu1", RateIn: decimal.NewFromInt(1)})
	b.Put(&domain.ContinuousSwap{ID: "0x2", PoolID: "0xp2", UserID: "0xu1", RateIn: decimal.NewFromInt(1)})
	b.Put(&domain.ContinuousSwap{ID: "0x3", PoolID: "0xp1", UserID: "0xu2", RateIn: decimal.NewFromInt(1)})
	require.NoError(t, store.Commit(ctx, b))

	pools, err := store.ListPools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "0xp2", pools[0].ID)

	pts, err := store.ListPooledTokens(ctx, "0xp1")
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "0xa", pts[0].TokenID)

	all, err := store.ListContinuousSwaps(ctx, storage.ContinuousSwapFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := store.ListContinuousSwaps(ctx, storage.ContinuousSwapFilter{UserID: "0xu1", PoolID: "0xp1"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "0x1", filtered[0].ID)
}

func TestStore_Cursor(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	_, err := store.GetCursor(ctx, "logs")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetCursor(ctx, "logs", 100))
	require.NoError(t, store.SetCursor(ctx, "logs", 200))

	block, err := store.GetCursor(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, int64(200), block)
}

func TestMigrations_Rerun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	// Already applied files are skipped.
	require.NoError(t, migrations.RunPostgresMigrations(context.Background(), pool))
}
