package ingestion

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"streamswap-indexer/internal/indexer"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/storage"
)

// AddressRegistry tracks the contract addresses whose logs are fetched.
// Factories are fixed at construction; pools are added as they are created.
// Tokens are tracked for bookkeeping only: no token event is decoded.
type AddressRegistry struct {
	mu        sync.Mutex
	factories map[common.Address]struct{}
	pools     map[common.Address]struct{}
	tokens    map[common.Address]struct{}
	pending   []common.Address
}

var _ indexer.Subscriber = (*AddressRegistry)(nil)

// NewAddressRegistry creates a registry watching the given factories.
func NewAddressRegistry(factories ...common.Address) *AddressRegistry {
	r := &AddressRegistry{
		factories: make(map[common.Address]struct{}, len(factories)),
		pools:     make(map[common.Address]struct{}),
		tokens:    make(map[common.Address]struct{}),
	}
	for _, f := range factories {
		r.factories[f] = struct{}{}
	}
	r.updateGauge()
	return r
}

// Seed registers the pools and tokens already in the store.
// Seeded addresses are not reported by Drain.
func (r *AddressRegistry) Seed(ctx context.Context, store storage.QueryStore) error {
	pools, err := store.ListPools(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	tokens, err := store.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pools {
		r.pools[common.HexToAddress(p.ID)] = struct{}{}
	}
	for _, t := range tokens {
		r.tokens[common.HexToAddress(t.ID)] = struct{}{}
	}
	r.updateGaugeLocked()
	return nil
}

// WatchPool registers a newly created pool.
func (r *AddressRegistry) WatchPool(pool common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[pool]; ok {
		return
	}
	r.pools[pool] = struct{}{}
	r.pending = append(r.pending, pool)
	r.updateGaugeLocked()
}

// WatchToken registers a newly bound token.
func (r *AddressRegistry) WatchToken(token common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = struct{}{}
}

// Addresses returns the factories and pools, sorted.
func (r *AddressRegistry) Addresses() []common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Address, 0, len(r.factories)+len(r.pools))
	for a := range r.factories {
		out = append(out, a)
	}
	for a := range r.pools {
		out = append(out, a)
	}
	sortAddresses(out)
	return out
}

// Tokens returns the tracked tokens, sorted.
func (r *AddressRegistry) Tokens() []common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Address, 0, len(r.tokens))
	for a := range r.tokens {
		out = append(out, a)
	}
	sortAddresses(out)
	return out
}

// Drain returns the pools registered since the previous call.
func (r *AddressRegistry) Drain() []common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

func (r *AddressRegistry) updateGauge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateGaugeLocked()
}

func (r *AddressRegistry) updateGaugeLocked() {
	observability.UpdateWatchedAddresses(len(r.factories) + len(r.pools))
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})
}
