// Command replay applies captured logs from a JSONL file or a Kafka topic
// to the entity store, using the same processor as the live indexer.
package main

import (
	"context"
	"encoding/json"
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
	from := flag.String("from", "", "Capture to replay: a JSONL file path, or \"kafka\" for the configured topic")
	rpcURL := flag.String("rpc-url", "", "JSON-RPC endpoint for token metadata (overrides chain.rpc_url)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	outputJSON := flag.Bool("json", false, "Print the summary as JSON")
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
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		}
	})

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if *from == "" {
		logger.Fatal("--from is required")
	}

	ctx, stop := app.SignalContext(context.Background(), app.ShutdownTimeout, logger)
	result, err := run(ctx, cfg, *from, logger)
	stop()

	// A Kafka source never ends on its own; cancellation is the normal exit.
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("replay failed", zap.Error(err))
	}
	printSummary(result, *outputJSON)
}

func run(ctx context.Context, cfg *config.Config, from string, logger *zap.Logger) (*ingestion.ReplayResult, error) {
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	var metadata indexer.MetadataSource
	if cfg.Chain.RPCURL != "" {
		client, err := chain.Dial(ctx, cfg.Chain.RPCURL, chain.WithLogger(logger.Named("rpc")))
		if err != nil {
			return nil, err
		}
		defer client.Close()

		src, closeMetadata, err := app.NewMetadataSource(ctx, client, cfg.Redis, logger.Named("metadata"))
		if err != nil {
			return nil, err
		}
		defer closeMetadata()
		metadata = src
	} else {
		logger.Warn("no rpc url configured, tokens not already stored cannot be bound")
	}

	processor := indexer.NewProcessor(stores.Store, indexer.Options{
		Metadata:            metadata,
		Rollups:             stores.Rollups,
		SkipDuplicateEvents: cfg.Indexer.SkipDuplicateEvents,
		Logger:              logger.Named("indexer"),
	})

	src, err := app.OpenReplaySource(ctx, from, cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("open replay source: %w", err)
	}
	defer src.Close()

	logger.Info("starting replay", zap.String("from", from))
	replayer := ingestion.NewReplayer(ingestion.ReplayerOptions{
		Handler: processor,
		Logger:  logger.Named("replay"),
	})
	return replayer.Replay(ctx, src)
}

func printSummary(result *ingestion.ReplayResult, asJSON bool) {
	if result == nil {
		return
	}
	if asJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return
	}
	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Logs Read:         %d\n", result.LogsRead)
	fmt.Printf("Events Applied:    %d\n", result.EventsApplied)
	fmt.Printf("Logs Skipped:      %d\n", result.LogsSkipped)
	fmt.Printf("Redeliveries:      %d\n", result.DuplicatesSeen)
	fmt.Printf("Last Block:        %d\n", result.LastBlock)
	fmt.Printf("Duration:          %v\n", result.Duration)
}
