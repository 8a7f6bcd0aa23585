package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
chain:
  rpc_url: http://node:8545
  factories:
    - "0x00000000000000000000000000000000000000f1"
  start_block: 100
  confirmations: 3
  poll_interval: 2s
storage:
  postgres_dsn: postgres://localhost/streamswap
redis:
  addr: localhost:6379
  ttl: 1h
indexer:
  skip_duplicate_events: false
logging:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://node:8545", cfg.Chain.RPCURL)
	assert.Equal(t, int64(100), cfg.Chain.StartBlock)
	assert.Equal(t, int64(3), cfg.Chain.Confirmations)
	assert.Equal(t, 2*time.Second, cfg.Chain.PollInterval)
	assert.Equal(t, int64(2000), cfg.Chain.BlockRange, "default kept")
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.False(t, cfg.Indexer.SkipDuplicateEvents)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Encoding)
	assert.Equal(t, []common.Address{common.HexToAddress("0xf1")}, cfg.FactoryAddresses())
	assert.NoError(t, cfg.ValidateIndexer())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"ETH_RPC_URL":     "http://other:8545",
		"POSTGRES_DSN":    "postgres://db/x",
		"KAFKA_BROKERS":   "k1:9092, k2:9092",
		"FACTORY_ADDRESS": "0x00000000000000000000000000000000000000f1,0x00000000000000000000000000000000000000f2",
		"START_BLOCK":     "42",
		"LOG_LEVEL":       "",
	}
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)

	assert.Equal(t, "http://other:8545", cfg.Chain.RPCURL)
	assert.Equal(t, "postgres://db/x", cfg.Storage.PostgresDSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Chain.Factories, 2)
	assert.Equal(t, int64(42), cfg.Chain.StartBlock)
	assert.Equal(t, "info", cfg.Logging.Level, "empty values do not override")
}

func TestApplyEnv_BadStartBlock(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "START_BLOCK" {
			return "abc", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "postgres dsn required")

	cfg.Storage.UseMemory = true
	assert.NoError(t, cfg.Validate())

	cfg.Chain.Factories = []string{"not-an-address"}
	cfg.Chain.BlockRange = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an address")
	assert.Contains(t, err.Error(), "block_range")

	cfg = Default()
	cfg.Storage.UseMemory = true
	err = cfg.ValidateIndexer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_url")
	assert.Contains(t, err.Error(), "factories")
}
