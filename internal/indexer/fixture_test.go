package indexer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
	"streamswap-indexer/internal/rollup"
	"streamswap-indexer/internal/storage"
	"streamswap-indexer/internal/storage/memory"
)

var (
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	poolAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	tokenA      = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB      = common.HexToAddress("0x000000000000000000000000000000000000000b")
	userAddr    = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

// stubMetadata serves fixed metadata and counts fetches per token.
type stubMetadata struct {
	mu       sync.Mutex
	decimals map[common.Address]int32
	calls    map[common.Address]int
	err      error
}

func newStubMetadata() *stubMetadata {
	return &stubMetadata{
		decimals: map[common.Address]int32{tokenA: 18, tokenB: 6},
		calls:    make(map[common.Address]int),
	}
}

func (m *stubMetadata) FetchTokenMetadata(_ context.Context, token common.Address) (*domain.TokenMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[token]++
	if m.err != nil {
		return nil, m.err
	}
	return &domain.TokenMetadata{
		Symbol:      "TK",
		Name:        "Token",
		Decimals:    m.decimals[token],
		TotalSupply: big.NewInt(1_000_000),
	}, nil
}

// recordingSubscriber records subscription registrations.
type recordingSubscriber struct {
	pools  []common.Address
	tokens []common.Address
}

func (r *recordingSubscriber) WatchPool(a common.Address)  { r.pools = append(r.pools, a) }
func (r *recordingSubscriber) WatchToken(a common.Address) { r.tokens = append(r.tokens, a) }

// failingUpdater fails every rollup notification.
type failingUpdater struct{ calls int }

func (f *failingUpdater) PoolDay(context.Context, domain.EventMeta, domain.RollupCategory) error {
	f.calls++
	return errors.New("sink down")
}
func (f *failingUpdater) PoolHour(context.Context, domain.EventMeta, domain.RollupCategory) error {
	f.calls++
	return errors.New("sink down")
}
func (f *failingUpdater) TokenDay(context.Context, string, domain.EventMeta, domain.RollupCategory) error {
	f.calls++
	return errors.New("sink down")
}

// failingStore wraps a store and fails every commit.
type failingStore struct {
	storage.EntityStore
}

func (failingStore) Commit(context.Context, *storage.Batch) error {
	return errors.New("connection reset")
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	sink     *memory.RollupSink
	subs     *recordingSubscriber
	metadata *stubMetadata
	proc     *Processor
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.NewStore(),
		sink:     memory.NewRollupSink(),
		subs:     &recordingSubscriber{},
		metadata: newStubMetadata(),
	}
	opts := Options{
		Metadata:            f.metadata,
		Subscriber:          f.subs,
		Rollups:             rollup.NewAggregator(f.sink),
		SkipDuplicateEvents: true,
		Logger:              zaptest.NewLogger(t),
	}
	for _, c := range configure {
		c(&opts)
	}
	f.proc = NewProcessor(f.store, opts)
	return f
}

// meta builds event context for the pool. The tx hash is derived from the block.
func meta(addr common.Address, block, ts int64, logIndex int) domain.EventMeta {
	return domain.EventMeta{
		Address:     addr,
		BlockNumber: block,
		Timestamp:   ts,
		TxHash:      crypto.Keccak256Hash(big.NewInt(block).Bytes()),
		LogIndex:    logIndex,
	}
}

func (f *fixture) dispatch(ev domain.Event) {
	f.t.Helper()
	require.NoError(f.t, f.proc.Dispatch(f.ctx, ev))
}

// setupPool creates the pool and binds tokens A and B.
func (f *fixture) setupPool() {
	f.t.Helper()
	f.dispatch(domain.PoolCreatedEvent{EventMeta: meta(factoryAddr, 1, 100, 0), Pool: poolAddr})
	f.dispatch(domain.TokenBoundEvent{EventMeta: meta(poolAddr, 2, 200, 0), Token: tokenA})
	f.dispatch(domain.TokenBoundEvent{EventMeta: meta(poolAddr, 2, 200, 1), Token: tokenB})
}

func (f *fixture) pool() *domain.Pool {
	f.t.Helper()
	p, err := storage.Get[*domain.Pool](f.ctx, f.store, domain.KindPool, idhash.AddressID(poolAddr))
	require.NoError(f.t, err)
	return p
}

func (f *fixture) token(addr common.Address) *domain.Token {
	f.t.Helper()
	tok, err := storage.Get[*domain.Token](f.ctx, f.store, domain.KindToken, idhash.AddressID(addr))
	require.NoError(f.t, err)
	return tok
}

func (f *fixture) pooled(addr common.Address) *domain.PooledToken {
	f.t.Helper()
	id := idhash.PooledTokenID(idhash.AddressID(addr), idhash.AddressID(poolAddr))
	pt, err := storage.Get[*domain.PooledToken](f.ctx, f.store, domain.KindPooledToken, id)
	require.NoError(f.t, err)
	return pt
}

// units returns n * 10^decimals as a raw token amount.
func units(n int64, decimals int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}
