package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/indexer"
	"streamswap-indexer/internal/observability"
)

// RPCMetadataSource reads token metadata with eth_call.
type RPCMetadataSource struct {
	client chain.Client
	logger *zap.Logger
}

var _ indexer.MetadataSource = (*RPCMetadataSource)(nil)

// NewRPCMetadataSource creates a metadata source over client.
func NewRPCMetadataSource(client chain.Client, logger *zap.Logger) *RPCMetadataSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCMetadataSource{client: client, logger: logger}
}

// errEmptyOutput is returned for a call answered with no data, as calls to
// accounts without code are.
var errEmptyOutput = errors.New("empty call output")

// FetchTokenMetadata calls symbol, name, decimals and totalSupply, which must
// all succeed. Tokens whose getUnderlyingToken reverts get the zero address;
// any other failure of that call is returned, since metadata is never
// fetched again.
func (s *RPCMetadataSource) FetchTokenMetadata(ctx context.Context, token common.Address) (*domain.TokenMetadata, error) {
	var md domain.TokenMetadata

	symbol, err := callToken[string](ctx, s.client, token, "symbol")
	if err != nil {
		return nil, err
	}
	name, err := callToken[string](ctx, s.client, token, "name")
	if err != nil {
		return nil, err
	}
	decimals, err := callToken[uint8](ctx, s.client, token, "decimals")
	if err != nil {
		return nil, err
	}
	supply, err := callToken[*big.Int](ctx, s.client, token, "totalSupply")
	if err != nil {
		return nil, err
	}
	md.Symbol = strings.TrimRight(symbol, "\x00")
	md.Name = strings.TrimRight(name, "\x00")
	md.Decimals = int32(decimals)
	md.TotalSupply = supply

	underlying, err := callToken[common.Address](ctx, s.client, token, "getUnderlyingToken")
	switch {
	case err == nil:
		md.UnderlyingToken = underlying
	case chain.IsExecutionReverted(err) || errors.Is(err, errEmptyOutput):
		s.logger.Debug("token has no underlying token",
			zap.Stringer("token", token),
			zap.Error(err))
	default:
		return nil, err
	}

	return &md, nil
}

// callToken runs a no-argument token getter and unpacks its single output.
func callToken[T any](ctx context.Context, client chain.Client, token common.Address, method string) (T, error) {
	var zero T
	input, err := chain.TokenABI.Pack(method)
	if err != nil {
		return zero, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return zero, fmt.Errorf("call %s on %s: %w", method, token.Hex(), err)
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("call %s on %s: %w", method, token.Hex(), errEmptyOutput)
	}
	values, err := chain.TokenABI.Unpack(method, out)
	if err != nil {
		return zero, fmt.Errorf("unpack %s on %s: %w", method, token.Hex(), err)
	}
	if len(values) != 1 {
		return zero, fmt.Errorf("unpack %s on %s: %d values", method, token.Hex(), len(values))
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("unpack %s on %s: unexpected type %T", method, token.Hex(), values[0])
	}
	return v, nil
}

// MetadataKeyPrefix prefixes the Redis keys of cached token metadata.
const MetadataKeyPrefix = "streamswap:token-metadata:"

// CachedMetadataSource is a Redis read-through cache in front of another source.
// Cache failures are logged and fall through to the wrapped source.
type CachedMetadataSource struct {
	next   indexer.MetadataSource
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

var _ indexer.MetadataSource = (*CachedMetadataSource)(nil)

// NewCachedMetadataSource wraps next. A zero ttl keeps entries forever.
func NewCachedMetadataSource(next indexer.MetadataSource, client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedMetadataSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedMetadataSource{next: next, client: client, ttl: ttl, logger: logger}
}

// FetchTokenMetadata returns the cached metadata or fetches and caches it.
func (s *CachedMetadataSource) FetchTokenMetadata(ctx context.Context, token common.Address) (*domain.TokenMetadata, error) {
	key := MetadataKeyPrefix + strings.ToLower(token.Hex())

	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var md domain.TokenMetadata
		if jerr := json.Unmarshal(data, &md); jerr == nil {
			observability.RecordMetadataCache("hit")
			return &md, nil
		}
		observability.RecordMetadataCache("error")
		s.logger.Warn("discarding undecodable cached metadata", zap.String("key", key))
	case errors.Is(err, redis.Nil):
		observability.RecordMetadataCache("miss")
	default:
		observability.RecordMetadataCache("error")
		s.logger.Warn("metadata cache read failed", zap.String("key", key), zap.Error(err))
	}

	md, err := s.next.FetchTokenMetadata(ctx, token)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(md)
	if err != nil {
		return md, nil
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("metadata cache write failed", zap.String("key", key), zap.Error(err))
	}
	return md, nil
}
