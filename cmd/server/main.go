// Command server serves the read-only query API over the materialized
// StreamSwap state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"streamswap-indexer/internal/api"
	"streamswap-indexer/internal/app"
	"streamswap-indexer/internal/config"
	"streamswap-indexer/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides api_addr)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.APIAddr = *addr
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		}
	})
	// An in-memory store would always be empty here.
	cfg.Storage.UseMemory = false
	// Rollups are write-only; the API never reads them.
	cfg.Storage.ClickhouseDSN = ""

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := app.SignalContext(context.Background(), app.ShutdownTimeout, logger)
	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	controller := api.NewController(stores.Store, logger.Named("api"))
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           controller.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting api server", zap.String("addr", cfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	app.Shutdown(srv, logger)
	return nil
}
