package ingestion

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/chain/stub"
	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
	"streamswap-indexer/internal/indexer"
	"streamswap-indexer/internal/storage"
	"streamswap-indexer/internal/storage/memory"
)

var (
	factory = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	pool    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	tokenA  = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB  = common.HexToAddress("0x000000000000000000000000000000000000000b")
	user    = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

// chainFixture is a stub node with two tokens, a memory store and a
// processor subscribed to an address registry.
type chainFixture struct {
	rpc       *stub.RPCClient
	store     *memory.Store
	registry  *AddressRegistry
	processor *indexer.Processor
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	rpc := stub.NewRPCClient()
	for _, tok := range []struct {
		addr     common.Address
		symbol   string
		decimals uint8
	}{{tokenA, "TKA", 18}, {tokenB, "TKB", 6}} {
		require.NoError(t, rpc.SetTokenCall(tok.addr, "symbol", tok.symbol))
		require.NoError(t, rpc.SetTokenCall(tok.addr, "name", "Token "+tok.symbol))
		require.NoError(t, rpc.SetTokenCall(tok.addr, "decimals", tok.decimals))
		require.NoError(t, rpc.SetTokenCall(tok.addr, "totalSupply", big.NewInt(1_000_000)))
	}

	store := memory.NewStore()
	registry := NewAddressRegistry(factory)
	logger := zaptest.NewLogger(t)
	processor := indexer.NewProcessor(store, indexer.Options{
		Metadata:            NewRPCMetadataSource(rpc, logger),
		Subscriber:          registry,
		SkipDuplicateEvents: true,
		Logger:              logger,
	})
	return &chainFixture{rpc: rpc, store: store, registry: registry, processor: processor}
}

// scenarioLogs creates a pool at block 10, binds both tokens and swaps.
func scenarioLogs() []types.Log {
	return []types.Log{
		stub.EventLog(factory, stub.LogPosition{Block: 10, TxIndex: 0, LogIndex: 0}, chain.EventNewPool, []common.Address{user, pool}),
		stub.EventLog(pool, stub.LogPosition{Block: 10, TxIndex: 0, LogIndex: 1}, chain.EventBindNew, []common.Address{tokenA}),
		stub.EventLog(pool, stub.LogPosition{Block: 11, TxIndex: 2, LogIndex: 4}, chain.EventBindNew, []common.Address{tokenB}),
		stub.EventLog(pool, stub.LogPosition{Block: 12, TxIndex: 1, LogIndex: 0}, chain.EventSwap,
			[]common.Address{user, tokenA, tokenB}, big.NewInt(100), big.NewInt(95)),
	}
}

func (f *chainFixture) addBlocks(from, to uint64) {
	for b := from; b <= to; b++ {
		f.rpc.SetHeader(b, 1_700_000_000+b*12)
	}
}

func (f *chainFixture) envelopes(logs []types.Log) []LogEnvelope {
	envs := make([]LogEnvelope, len(logs))
	for i, lg := range logs {
		envs[i] = LogEnvelope{Log: lg, BlockTimestamp: int64(1_700_000_000 + lg.BlockNumber*12)}
	}
	return envs
}

func (f *chainFixture) pool(t *testing.T) *domain.Pool {
	t.Helper()
	p, err := storage.Get[*domain.Pool](context.Background(), f.store, domain.KindPool, idhash.AddressID(pool))
	require.NoError(t, err)
	return p
}
