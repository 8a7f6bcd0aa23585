package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"streamswap-indexer/internal/observability"
)

// Default configuration values.
const (
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// RPCClient wraps a Client with retries, exponential backoff and latency metrics.
type RPCClient struct {
	backend     Client
	closer      func()
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	logger      *zap.Logger
}

// ClientOption configures RPCClient.
type ClientOption func(*RPCClient)

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *RPCClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *RPCClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *RPCClient) {
		c.maxDelay = d
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *RPCClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRPCClient wraps an existing backend.
func NewRPCClient(backend Client, opts ...ClientOption) *RPCClient {
	c := &RPCClient{
		backend:     backend,
		closer:      func() {},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, endpoint string, opts ...ClientOption) (*RPCClient, error) {
	ec, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	c := NewRPCClient(ec, opts...)
	c.closer = ec.Close
	return c, nil
}

// Close releases the underlying connection.
func (c *RPCClient) Close() {
	c.closer()
}

// BlockNumber returns the latest block number.
func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, c, "eth_blockNumber", func() (uint64, error) {
		return c.backend.BlockNumber(ctx)
	})
}

// HeaderByNumber returns a block header.
func (c *RPCClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return call(ctx, c, "eth_getBlockByNumber", func() (*types.Header, error) {
		return c.backend.HeaderByNumber(ctx, number)
	})
}

// FilterLogs runs eth_getLogs.
func (c *RPCClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return call(ctx, c, "eth_getLogs", func() ([]types.Log, error) {
		return c.backend.FilterLogs(ctx, q)
	})
}

// CallContract runs eth_call.
func (c *RPCClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, c, "eth_call", func() ([]byte, error) {
		return c.backend.CallContract(ctx, msg, blockNumber)
	})
}

// call runs fn with retries and exponential backoff.
// JSON-RPC errors returned by the node are not retried.
func call[T any](ctx context.Context, c *RPCClient, method string, fn func() (T, error)) (T, error) {
	var zero T
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		start := time.Now()
		v, err := fn()
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err
		c.logger.Warn("rpc call failed",
			zap.String("method", method),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return zero, fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

func retryable(err error) bool {
	if errors.Is(err, ethereum.NotFound) {
		return false
	}
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}
