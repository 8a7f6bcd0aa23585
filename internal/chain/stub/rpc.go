package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"streamswap-indexer/internal/chain"
)

// ErrNotFound is returned when a header is not configured.
var ErrNotFound = errors.New("not found")

// RevertError is the node error for a reverted call. Calls to getters that
// are not configured revert, like calls to a function the contract lacks.
type RevertError struct{}

func (RevertError) Error() string          { return "execution reverted" }
func (RevertError) ErrorCode() int         { return -32000 }
func (RevertError) ErrorData() interface{} { return nil }

type callKey struct {
	to       common.Address
	selector [4]byte
}

// RPCClient implements chain.Client for testing.
type RPCClient struct {
	mu      sync.Mutex
	Head    uint64
	Logs    []types.Log
	Headers map[uint64]*types.Header
	calls   map[callKey][]byte
	failed  map[callKey]error

	FilterCalls int
}

var _ chain.Client = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Headers: make(map[uint64]*types.Header),
		calls:   make(map[callKey][]byte),
		failed:  make(map[callKey]error),
	}
}

// BlockNumber returns the configured head.
func (c *RPCClient) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Head, nil
}

// HeaderByNumber returns a configured header. A nil number returns the head.
func (c *RPCClient) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.Head
	if number != nil {
		n = number.Uint64()
	}
	h, ok := c.Headers[n]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

// FilterLogs returns stored logs matching the address set, first topic set
// and block range of the query, in insertion order.
func (c *RPCClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FilterCalls++

	var out []types.Log
	for _, lg := range c.Logs {
		if q.FromBlock != nil && lg.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && lg.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, lg.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
			if len(lg.Topics) == 0 || !containsHash(q.Topics[0], lg.Topics[0]) {
				continue
			}
		}
		out = append(out, lg)
	}
	return out, nil
}

// CallContract returns the configured response for the target and selector.
// Unconfigured calls fail with RevertError.
func (c *RPCClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("invalid call")
	}
	k := callKey{to: *msg.To}
	copy(k.selector[:], msg.Data[:4])
	if err, ok := c.failed[k]; ok {
		return nil, err
	}
	out, ok := c.calls[k]
	if !ok {
		return nil, RevertError{}
	}
	return out, nil
}

// AddLogs appends logs to the stub chain.
func (c *RPCClient) AddLogs(logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Logs = append(c.Logs, logs...)
}

// SetHead sets the latest block number.
func (c *RPCClient) SetHead(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Head = n
}

// SetHeader registers a header with the given timestamp.
func (c *RPCClient) SetHeader(number uint64, timestamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Headers[number] = &types.Header{Number: new(big.Int).SetUint64(number), Time: timestamp}
}

// SetTokenCall registers the ABI-encoded result of a token getter.
func (c *RPCClient) SetTokenCall(token common.Address, method string, values ...interface{}) error {
	m, ok := chain.TokenABI.Methods[method]
	if !ok {
		return fmt.Errorf("unknown method %s", method)
	}
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[tokenKey(token, m.ID)] = out
	return nil
}

// FailTokenCall makes a token getter return err.
func (c *RPCClient) FailTokenCall(token common.Address, method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[tokenKey(token, chain.TokenABI.Methods[method].ID)] = err
}

func tokenKey(token common.Address, id []byte) callKey {
	k := callKey{to: token}
	copy(k.selector[:], id)
	return k
}

func containsAddress(set []common.Address, a common.Address) bool {
	for _, x := range set {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(set []common.Hash, h common.Hash) bool {
	for _, x := range set {
		if x == h {
			return true
		}
	}
	return false
}
