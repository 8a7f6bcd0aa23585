package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/storage"
)

// DefaultCursorName is the cursor the poller persists progress under.
const DefaultCursorName = "indexer"

// Poller pulls logs from a JSON-RPC node in block ranges and applies them.
type Poller struct {
	client        chain.Client
	decoder       *chain.Decoder
	handler       EventHandler
	registry      *AddressRegistry
	cursors       storage.CursorStore
	cursorName    string
	startBlock    int64
	confirmations int64
	blockRange    int64
	pollInterval  time.Duration
	heads         chain.HeadSubscriber
	tap           LogSink
	logger        *zap.Logger
}

// PollerOptions contains configuration for creating a Poller.
type PollerOptions struct {
	Client        chain.Client
	Handler       EventHandler
	Registry      *AddressRegistry
	Cursors       storage.CursorStore
	CursorName    string        // Default: "indexer"
	StartBlock    int64         // First block when no cursor is saved
	Confirmations int64         // Blocks behind head treated as final
	BlockRange    int64         // Default: 2000 blocks per eth_getLogs
	PollInterval  time.Duration // Default: 5s
	Heads         chain.HeadSubscriber
	Tap           LogSink
	Logger        *zap.Logger
}

// NewPoller creates a new block poller.
func NewPoller(opts PollerOptions) *Poller {
	cursorName := opts.CursorName
	if cursorName == "" {
		cursorName = DefaultCursorName
	}

	blockRange := opts.BlockRange
	if blockRange <= 0 {
		blockRange = 2000
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		client:        opts.Client,
		decoder:       chain.NewDecoder(),
		handler:       opts.Handler,
		registry:      opts.Registry,
		cursors:       opts.Cursors,
		cursorName:    cursorName,
		startBlock:    opts.StartBlock,
		confirmations: opts.Confirmations,
		blockRange:    blockRange,
		pollInterval:  pollInterval,
		heads:         opts.Heads,
		tap:           opts.Tap,
		logger:        logger,
	}
}

// Run syncs to the head, then waits for a new head or the poll interval
// and syncs again. It blocks until ctx is cancelled or a range fails.
func (p *Poller) Run(ctx context.Context) error {
	var heads <-chan chain.Head
	if p.heads != nil {
		ch, err := p.heads.SubscribeNewHeads(ctx)
		if err != nil {
			p.logger.Warn("head subscription failed, polling only", zap.Error(err))
		} else {
			heads = ch
		}
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.logger.Info("poller started",
		zap.Int64("block_range", p.blockRange),
		zap.Int64("confirmations", p.confirmations),
		zap.Duration("poll_interval", p.pollInterval),
		zap.Bool("head_subscription", heads != nil))

	for {
		if _, err := p.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return ctx.Err()
		case h, ok := <-heads:
			if !ok {
				heads = nil
				continue
			}
			p.logger.Debug("new head", zap.Int64("block", h.Number))
		case <-ticker.C:
		}
	}
}

// SyncOnce processes every confirmed block after the cursor and returns
// the last processed block.
func (p *Poller) SyncOnce(ctx context.Context) (int64, error) {
	last, err := p.cursor(ctx)
	if err != nil {
		return 0, err
	}

	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return last, fmt.Errorf("block number: %w", err)
	}
	target := int64(head) - p.confirmations

	for from := last + 1; from <= target; from += p.blockRange {
		to := from + p.blockRange - 1
		if to > target {
			to = target
		}
		if err := p.processRange(ctx, from, to); err != nil {
			return last, err
		}
		if err := p.cursors.SetCursor(ctx, p.cursorName, to); err != nil {
			return last, fmt.Errorf("save cursor: %w", err)
		}
		last = to
	}
	return last, nil
}

func (p *Poller) cursor(ctx context.Context) (int64, error) {
	c, err := p.cursors.GetCursor(ctx, p.cursorName)
	if errors.Is(err, storage.ErrNotFound) {
		return p.startBlock - 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return c, nil
}

// processRange applies all logs in [from, to]. Pools created inside the
// range have their later logs in the same range fetched and merged in order.
func (p *Poller) processRange(ctx context.Context, from, to int64) error {
	start := time.Now()
	p.registry.Drain()

	logs, err := p.fetch(ctx, p.registry.Addresses(), from, to)
	if err != nil {
		return err
	}

	timestamps := make(map[uint64]int64)
	applied := 0

	for i := 0; i < len(logs); i++ {
		lg := logs[i]
		ts, err := p.blockTimestamp(ctx, timestamps, lg.BlockNumber)
		if err != nil {
			return err
		}
		env := LogEnvelope{Log: lg, BlockTimestamp: ts}

		if p.tap != nil {
			if err := p.tap.Publish(ctx, []LogEnvelope{env}); err != nil {
				return fmt.Errorf("publish log: %w", err)
			}
		}

		ok, err := applyLog(ctx, p.decoder, p.handler, env, p.logger)
		if err != nil {
			return err
		}
		if ok {
			applied++
		}

		added := p.registry.Drain()
		if len(added) == 0 {
			continue
		}
		more, err := p.fetch(ctx, added, int64(lg.BlockNumber), to)
		if err != nil {
			return err
		}
		logs = mergeAfter(logs, i, more)
	}

	p.logger.Info("range processed",
		zap.Int64("from", from),
		zap.Int64("to", to),
		zap.Int("logs", len(logs)),
		zap.Int("applied", applied),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// fetch runs eth_getLogs for addrs and returns the live logs, ordered.
func (p *Poller) fetch(ctx context.Context, addrs []common.Address, from, to int64) ([]types.Log, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	q := ethereum.FilterQuery{
		FromBlock: big.NewInt(from),
		ToBlock:   big.NewInt(to),
		Addresses: addrs,
		Topics:    [][]common.Hash{chain.AllTopics()},
	}
	raw, err := p.client.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get logs %d-%d: %w", from, to, err)
	}
	observability.RecordLogsFetched(len(raw))

	logs := raw[:0]
	for _, lg := range raw {
		if !lg.Removed {
			logs = append(logs, lg)
		}
	}
	SortLogs(logs)
	return logs, nil
}

func (p *Poller) blockTimestamp(ctx context.Context, cache map[uint64]int64, block uint64) (int64, error) {
	if ts, ok := cache[block]; ok {
		return ts, nil
	}
	h, err := p.client.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", block, err)
	}
	ts := int64(h.Time)
	cache[block] = ts
	return ts, nil
}

// mergeAfter inserts the logs of more that come after logs[i] into the
// tail of logs, keeping the tail ordered.
func mergeAfter(logs []types.Log, i int, more []types.Log) []types.Log {
	cur := logs[i]
	tail := append([]types.Log(nil), logs[i+1:]...)
	for _, lg := range more {
		if compareLogs(&lg, &cur) > 0 {
			tail = append(tail, lg)
		}
	}
	SortLogs(tail)
	return append(logs[:i+1], tail...)
}
