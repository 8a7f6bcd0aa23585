package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"streamswap-indexer/internal/chain"
)

// Replayer applies captured logs without an RPC dependency.
type Replayer struct {
	decoder *chain.Decoder
	handler EventHandler
	logger  *zap.Logger
}

// ReplayerOptions contains configuration for creating a Replayer.
type ReplayerOptions struct {
	Handler EventHandler
	Logger  *zap.Logger
}

// NewReplayer creates a new replayer.
func NewReplayer(opts ReplayerOptions) *Replayer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		decoder: chain.NewDecoder(),
		handler: opts.Handler,
		logger:  logger,
	}
}

// ReplayResult contains statistics from a replay operation.
type ReplayResult struct {
	LogsRead       int
	EventsApplied  int
	LogsSkipped    int
	DuplicatesSeen int
	LastBlock      int64
	Duration       time.Duration
}

// Replay applies envelopes from src in order until the source is exhausted
// or ctx is done. A log at the same position as its predecessor is a
// redelivery and is acked without being applied; a log before its
// predecessor fails with ErrInvalidOrdering.
func (r *Replayer) Replay(ctx context.Context, src LogSource) (*ReplayResult, error) {
	start := time.Now()
	result := &ReplayResult{}
	defer func() { result.Duration = time.Since(start) }()

	var prev *types.Log
	for {
		env, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}
		result.LogsRead++

		if prev != nil {
			switch c := compareLogs(prev, &env.Log); {
			case c == 0:
				result.DuplicatesSeen++
				if err := src.Ack(ctx, env); err != nil {
					return result, err
				}
				continue
			case c > 0:
				return result, fmt.Errorf("%w: block %d log %d after block %d log %d",
					ErrInvalidOrdering, env.Log.BlockNumber, env.Log.Index, prev.BlockNumber, prev.Index)
			}
		}
		if env.Log.Removed {
			result.LogsSkipped++
			if err := src.Ack(ctx, env); err != nil {
				return result, err
			}
			continue
		}

		applied, err := applyLog(ctx, r.decoder, r.handler, env, r.logger)
		if err != nil {
			return result, err
		}
		if applied {
			result.EventsApplied++
		} else {
			result.LogsSkipped++
		}
		if err := src.Ack(ctx, env); err != nil {
			return result, err
		}

		lg := env.Log
		prev = &lg
		result.LastBlock = int64(lg.BlockNumber)
	}

	r.logger.Info("replay complete",
		zap.Int("logs", result.LogsRead),
		zap.Int("applied", result.EventsApplied),
		zap.Int("skipped", result.LogsSkipped),
		zap.Int("duplicates", result.DuplicatesSeen),
		zap.Int64("last_block", result.LastBlock),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
