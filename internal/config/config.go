// Package config loads the indexer configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config is the configuration shared by all commands.
type Config struct {
	Chain      ChainConfig      `yaml:"chain"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Accounting AccountingConfig `yaml:"accounting"`
	Logging    LoggingConfig    `yaml:"logging"`

	MetricsAddr string `yaml:"metrics_addr"`
	APIAddr     string `yaml:"api_addr"`
}

// ChainConfig describes the node and the contracts to follow.
type ChainConfig struct {
	RPCURL        string        `yaml:"rpc_url"`
	WSURL         string        `yaml:"ws_url"` // optional, wakes the poller on new heads
	Factories     []string      `yaml:"factories"`
	StartBlock    int64         `yaml:"start_block"`
	Confirmations int64         `yaml:"confirmations"`
	BlockRange    int64         `yaml:"block_range"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// StorageConfig selects the entity store and the rollup sink.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // empty keeps rollups in memory
	UseMemory     bool   `yaml:"use_memory"`
}

// RedisConfig enables the token metadata cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// KafkaConfig names the captured log topic.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// IndexerConfig tunes event application.
type IndexerConfig struct {
	SkipDuplicateEvents bool `yaml:"skip_duplicate_events"`
}

// AccountingConfig carries the flow accounting contract address. No handler
// reads it; it is kept so a deployment describes its contracts in one place.
type AccountingConfig struct {
	CFAAddress string `yaml:"cfa_address"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			BlockRange:   2000,
			PollInterval: 5 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic:   "streamswap-logs",
			GroupID: "streamswap-replay",
		},
		Indexer: IndexerConfig{
			SkipDuplicateEvents: true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		MetricsAddr: ":9090",
		APIAddr:     ":8080",
	}
}

// Load reads path (when non-empty) over the defaults and applies
// environment overrides. The result is not validated; call Validate once
// command-line flags have been applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("ETH_RPC_URL", &c.Chain.RPCURL)
	str("ETH_WS_URL", &c.Chain.WSURL)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_ENCODING", &c.Logging.Encoding)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("API_ADDR", &c.APIAddr)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	list("FACTORY_ADDRESS", &c.Chain.Factories)

	if v, ok := lookup("START_BLOCK"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("START_BLOCK: %w", err)
		}
		c.Chain.StartBlock = n
	}
	return nil
}

// FactoryAddresses returns the configured factories as addresses.
func (c *Config) FactoryAddresses() []common.Address {
	out := make([]common.Address, 0, len(c.Chain.Factories))
	for _, f := range c.Chain.Factories {
		out = append(out, common.HexToAddress(f))
	}
	return out
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required unless storage.use_memory is set"))
	}
	for _, f := range c.Chain.Factories {
		if !common.IsHexAddress(f) {
			errs = append(errs, fmt.Errorf("chain.factories: %q is not an address", f))
		}
	}
	if c.Accounting.CFAAddress != "" && !common.IsHexAddress(c.Accounting.CFAAddress) {
		errs = append(errs, fmt.Errorf("accounting.cfa_address: %q is not an address", c.Accounting.CFAAddress))
	}
	if c.Chain.StartBlock < 0 {
		errs = append(errs, errors.New("chain.start_block must not be negative"))
	}
	if c.Chain.Confirmations < 0 {
		errs = append(errs, errors.New("chain.confirmations must not be negative"))
	}
	if c.Chain.BlockRange <= 0 {
		errs = append(errs, errors.New("chain.block_range must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateIndexer checks the settings of live indexing.
func (c *Config) ValidateIndexer() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpc_url is required"))
	}
	if len(c.Chain.Factories) == 0 {
		errs = append(errs, errors.New("chain.factories must list at least one factory"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
