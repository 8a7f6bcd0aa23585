package rollup

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage/memory"
)

func TestBucketStart(t *testing.T) {
	assert.Equal(t, int64(1699920000), DayStart(1700000000))
	assert.Equal(t, int64(1699999200), HourStart(1700000000))
	assert.Equal(t, int64(86400), DayStart(86400))
	assert.Equal(t, int64(0), HourStart(3599))
	assert.Equal(t, int64(-3600), HourStart(-1))
}

func TestAggregator_WritesBuckets(t *testing.T) {
	sink := memory.NewRollupSink()
	agg := NewAggregator(sink)
	ctx := context.Background()

	pool := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	meta := domain.EventMeta{Address: pool, BlockNumber: 7, Timestamp: 1700000000}

	require.NoError(t, agg.PoolDay(ctx, meta, domain.CategoryInstant))
	require.NoError(t, agg.PoolHour(ctx, meta, domain.CategoryInstant))
	require.NoError(t, agg.TokenDay(ctx, "0xtoken", meta, domain.CategoryNone))
	require.NoError(t, agg.TokenDay(ctx, "0xtoken", meta, domain.CategoryNone))

	poolID := "0x00000000000000000000000000000000000000aa"
	assert.Equal(t, uint64(1), sink.Count(memory.RollupKey{
		Kind: domain.RollupPoolDay, EntityID: poolID, BucketStart: 1699920000, Category: domain.CategoryInstant,
	}))
	assert.Equal(t, uint64(1), sink.Count(memory.RollupKey{
		Kind: domain.RollupPoolHour, EntityID: poolID, BucketStart: 1699999200, Category: domain.CategoryInstant,
	}))
	assert.Equal(t, uint64(2), sink.CountFor(domain.RollupTokenDay, "0xtoken", domain.CategoryNone))
}

func TestAggregator_PropagatesSinkError(t *testing.T) {
	agg := NewAggregator(memory.NewRollupSink())

	err := agg.TokenDay(context.Background(), "", domain.EventMeta{}, domain.CategoryNone)
	assert.Error(t, err)
}
