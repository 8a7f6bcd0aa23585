package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/chain/stub"
	"streamswap-indexer/internal/config"
	"streamswap-indexer/internal/ingestion"
	"streamswap-indexer/internal/storage/memory"
)

func TestOpenStores_Memory(t *testing.T) {
	s, err := OpenStores(context.Background(), config.StorageConfig{UseMemory: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &memory.Store{}, s.Store)
	assert.NotNil(t, s.Rollups)

	s.Close()
	s.Close()
}

func TestNewMetadataSource_WithoutRedis(t *testing.T) {
	src, closeFn, err := NewMetadataSource(context.Background(), stub.NewRPCClient(), config.RedisConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &ingestion.RPCMetadataSource{}, src)
}

func TestServeMetrics_Disabled(t *testing.T) {
	srv := ServeMetrics("", zaptest.NewLogger(t))
	assert.Nil(t, srv)
	Shutdown(srv, zaptest.NewLogger(t))
}

func TestSignalContext_StopCancels(t *testing.T) {
	ctx, stop := SignalContext(context.Background(), time.Second, zaptest.NewLogger(t))
	stop()
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by stop")
	}
}

func envelope(block uint64, index uint) ingestion.LogEnvelope {
	token := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	lg := stub.EventLog(common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		stub.LogPosition{Block: block, LogIndex: index}, chain.EventBindNew, []common.Address{token})
	return ingestion.LogEnvelope{Log: lg, BlockTimestamp: int64(block) * 12}
}

func TestCaptureAndReplaySource_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "capture.jsonl")

	// Two capture runs appending out of order.
	for _, envs := range [][]ingestion.LogEnvelope{
		{envelope(20, 0), envelope(20, 1)},
		{envelope(10, 3)},
	} {
		sink, err := OpenCapture(path, config.KafkaConfig{})
		require.NoError(t, err)
		require.NoError(t, sink.Publish(ctx, envs))
		require.NoError(t, sink.Close())
	}

	src, err := OpenReplaySource(ctx, path, config.KafkaConfig{})
	require.NoError(t, err)
	defer src.Close()

	got, err := ingestion.ReadAll(ctx, src)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(10), got[0].Log.BlockNumber)
	assert.Equal(t, uint(0), got[1].Log.Index)
	assert.Equal(t, uint(1), got[2].Log.Index)
}

func TestOpenCapture_None(t *testing.T) {
	sink, err := OpenCapture("", config.KafkaConfig{})
	require.NoError(t, err)
	assert.Nil(t, sink)
}

func TestKafkaTargets_RequireSettings(t *testing.T) {
	_, err := OpenCapture(KafkaTarget, config.KafkaConfig{Topic: "logs"})
	assert.ErrorContains(t, err, "kafka.brokers")

	_, err = OpenReplaySource(context.Background(), KafkaTarget, config.KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.ErrorContains(t, err, "kafka.topic")

	_, err = OpenReplaySource(context.Background(), KafkaTarget, config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "logs"})
	assert.ErrorContains(t, err, "group_id")

	_, err = OpenReplaySource(context.Background(), "", config.KafkaConfig{})
	assert.Error(t, err)
}
