package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"streamswap-indexer/internal/domain"
)

// ackRecorder wraps a source and records acknowledged positions.
type ackRecorder struct {
	LogSource
	acked []uint
}

func (a *ackRecorder) Ack(ctx context.Context, env LogEnvelope) error {
	a.acked = append(a.acked, env.Log.Index)
	return a.LogSource.Ack(ctx, env)
}

func (f *chainFixture) replayer(t *testing.T) *Replayer {
	return NewReplayer(ReplayerOptions{Handler: f.processor, Logger: zaptest.NewLogger(t)})
}

func TestReplayer_AppliesInOrder(t *testing.T) {
	f := newChainFixture(t)
	envs := f.envelopes(scenarioLogs())

	src := &ackRecorder{LogSource: NewSliceSource(envs)}
	res, err := f.replayer(t).Replay(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 4, res.LogsRead)
	assert.Equal(t, 4, res.EventsApplied)
	assert.Equal(t, int64(12), res.LastBlock)
	assert.Len(t, src.acked, 4)
	assert.Equal(t, 1, f.store.Count(domain.KindInstantSwap))
}

func TestReplayer_SkipsRedeliveryAndUnknownLogs(t *testing.T) {
	f := newChainFixture(t)
	logs := scenarioLogs()
	foreign := types.Log{
		Address:     pool,
		Topics:      []common.Hash{common.HexToHash("0x01")},
		BlockNumber: 12,
		TxIndex:     5,
		Index:       9,
	}
	envs := f.envelopes([]types.Log{logs[0], logs[1], logs[1], logs[2], logs[3], foreign})

	res, err := f.replayer(t).Replay(context.Background(), NewSliceSource(envs))
	require.NoError(t, err)
	assert.Equal(t, 6, res.LogsRead)
	assert.Equal(t, 4, res.EventsApplied)
	assert.Equal(t, 1, res.DuplicatesSeen)
	assert.Equal(t, 1, res.LogsSkipped)
	assert.Len(t, f.pool(t).TokenAddresses, 2)
}

func TestReplayer_RejectsOutOfOrder(t *testing.T) {
	f := newChainFixture(t)
	logs := scenarioLogs()
	envs := f.envelopes([]types.Log{logs[0], logs[2], logs[1]})

	_, err := f.replayer(t).Replay(context.Background(), NewSliceSource(envs))
	assert.True(t, errors.Is(err, ErrInvalidOrdering))
}

func TestReplayer_SortedCaptureMatchesPoller(t *testing.T) {
	f := newChainFixture(t)
	logs := scenarioLogs()
	envs := f.envelopes([]types.Log{logs[3], logs[1], logs[2], logs[0]})
	SortEnvelopes(envs)

	_, err := f.replayer(t).Replay(context.Background(), NewSliceSource(envs))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Count(domain.KindInstantSwap))
}
