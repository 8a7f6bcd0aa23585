// Package app wires the pieces every command shares: stores, rollup sinks,
// the token metadata source, the metrics endpoint and shutdown signals.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/config"
	"streamswap-indexer/internal/indexer"
	"streamswap-indexer/internal/ingestion"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/rollup"
	"streamswap-indexer/internal/storage"
	chstore "streamswap-indexer/internal/storage/clickhouse"
	"streamswap-indexer/internal/storage/memory"
	"streamswap-indexer/internal/storage/migrations"
	pgstore "streamswap-indexer/internal/storage/postgres"
)

// ShutdownTimeout bounds a graceful shutdown after the first signal.
const ShutdownTimeout = 30 * time.Second

// Stores holds the opened backends. Close releases them in reverse order.
type Stores struct {
	Store   storage.Store
	Rollups rollup.Updater

	closers []func()
}

// Close releases every opened backend.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores opens the entity store and the rollup sink described by cfg.
// Postgres migrations are applied before the store is returned.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}

	if cfg.UseMemory {
		logger.Info("using in-memory entity store")
		s.Store = memory.NewStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Store = pgstore.NewStore(pool)
	}

	var sink storage.RollupSink
	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.Open(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := conn.Close(); err != nil {
				logger.Warn("close clickhouse", zap.Error(err))
			}
		})
		sink = chstore.NewRollupSink(conn)
	} else {
		logger.Info("clickhouse not configured, keeping rollups in memory")
		sink = memory.NewRollupSink()
	}
	s.Rollups = rollup.NewAggregator(sink)

	return s, nil
}

// NewMetadataSource returns the on-chain token metadata source, wrapped in a
// Redis read-through cache when cfg.Addr is set. The returned func closes
// the Redis client.
func NewMetadataSource(ctx context.Context, client chain.Client, cfg config.RedisConfig, logger *zap.Logger) (indexer.MetadataSource, func(), error) {
	src := ingestion.NewRPCMetadataSource(client, logger)
	if cfg.Addr == "" {
		return src, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
	return ingestion.NewCachedMetadataSource(src, rdb, cfg.TTL, logger), closeFn, nil
}

// ServeMetrics exposes /metrics and /health on addr in the background.
// An empty addr disables the endpoint and returns nil.
func ServeMetrics(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

// Shutdown stops srv, waiting at most ShutdownTimeout. A nil srv is ignored.
func Shutdown(srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.String("addr", srv.Addr), zap.Error(err))
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
// After the first signal a second one, or a shutdown taking longer than
// timeout, exits the process. Call stop once the command has finished.
func SignalContext(parent context.Context, timeout time.Duration, logger *zap.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown", zap.Stringer("signal", sig))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(timeout):
			logger.Error("graceful shutdown timed out, forcing exit", zap.Duration("timeout", timeout))
			os.Exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			cancel()
		})
	}
	return ctx, stop
}
