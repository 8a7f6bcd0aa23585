package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"streamswap-indexer/internal/domain"
)

// MetadataSource reads the static metadata of a token contract.
// It is called once per newly bound token.
type MetadataSource interface {
	FetchTokenMetadata(ctx context.Context, token common.Address) (*domain.TokenMetadata, error)
}

// Subscriber is told which contract addresses have future events to deliver.
// WatchPool is called once per created pool, WatchToken once per new token.
type Subscriber interface {
	WatchPool(pool common.Address)
	WatchToken(token common.Address)
}

type nopSubscriber struct{}

func (nopSubscriber) WatchPool(common.Address)  {}
func (nopSubscriber) WatchToken(common.Address) {}
