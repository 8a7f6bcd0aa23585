// Command indexer follows StreamSwap factories and pools on an Ethereum
// JSON-RPC node and materializes their state into the entity store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"streamswap-indexer/internal/app"
	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/config"
	"streamswap-indexer/internal/indexer"
	"streamswap-indexer/internal/ingestion"
	"streamswap-indexer/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	rpcURL := flag.String("rpc-url", "", "Ethereum JSON-RPC HTTP endpoint (overrides chain.rpc_url)")
	wsURL := flag.String("ws-url", "", "Ethereum websocket endpoint for new heads (overrides chain.ws_url)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	startBlock := flag.Int64("start-block", 0, "First block to index when no cursor is saved")
	capture := flag.String("capture", "", "Copy raw logs to a JSONL file, or \"kafka\" for the configured topic")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides metrics_addr)")
	once := flag.Bool("once", false, "Sync to the confirmed head and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rpc-url":
			cfg.Chain.RPCURL = *rpcURL
		case "ws-url":
			cfg.Chain.WSURL = *wsURL
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		case "start-block":
			cfg.Chain.StartBlock = *startBlock
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.ValidateIndexer(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	metricsSrv := app.ServeMetrics(cfg.MetricsAddr, logger)

	ctx, stop := app.SignalContext(context.Background(), app.ShutdownTimeout, logger)
	err = run(ctx, cfg, *capture, *once, logger)
	stop()
	app.Shutdown(metricsSrv, logger)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("indexer stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, capture string, once bool, logger *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	client, err := chain.Dial(ctx, cfg.Chain.RPCURL, chain.WithLogger(logger.Named("rpc")))
	if err != nil {
		return err
	}
	defer client.Close()

	metadata, closeMetadata, err := app.NewMetadataSource(ctx, client, cfg.Redis, logger.Named("metadata"))
	if err != nil {
		return err
	}
	defer closeMetadata()

	registry := ingestion.NewAddressRegistry(cfg.FactoryAddresses()...)
	if err := registry.Seed(ctx, stores.Store); err != nil {
		return err
	}

	processor := indexer.NewProcessor(stores.Store, indexer.Options{
		Metadata:            metadata,
		Subscriber:          registry,
		Rollups:             stores.Rollups,
		SkipDuplicateEvents: cfg.Indexer.SkipDuplicateEvents,
		Logger:              logger.Named("indexer"),
	})

	tap, err := app.OpenCapture(capture, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	if tap != nil {
		defer tap.Close()
	}

	opts := ingestion.PollerOptions{
		Client:        client,
		Handler:       processor,
		Registry:      registry,
		Cursors:       stores.Store,
		StartBlock:    cfg.Chain.StartBlock,
		Confirmations: cfg.Chain.Confirmations,
		BlockRange:    cfg.Chain.BlockRange,
		PollInterval:  cfg.Chain.PollInterval,
		Tap:           tap,
		Logger:        logger.Named("poller"),
	}

	if once {
		head, err := ingestion.NewPoller(opts).SyncOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("sync complete", zap.Int64("block", head))
		return nil
	}

	if cfg.Chain.WSURL != "" {
		ws, err := chain.NewWSClient(ctx, cfg.Chain.WSURL, nil, logger)
		if err != nil {
			return fmt.Errorf("create websocket client: %w", err)
		}
		defer ws.Close()
		opts.Heads = ws
	}

	logger.Info("starting indexer",
		zap.Int("factories", len(cfg.Chain.Factories)),
		zap.Int("watched", len(registry.Addresses())),
		zap.Bool("capture", tap != nil))
	return ingestion.NewPoller(opts).Run(ctx)
}
