package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies an inbound event kind.
type EventType string

// Event type constants.
const (
	EventPoolCreated              EventType = "pool_created"
	EventTokenBound               EventType = "token_bound"
	EventInstantSwap              EventType = "instant_swap"
	EventContinuousRateSet        EventType = "continuous_rate_set"
	EventContinuousRateOutUpdated EventType = "continuous_rate_out_updated"
	EventJoin                     EventType = "join"
	EventExit                     EventType = "exit"
)

// EventMeta is the context every event carries.
type EventMeta struct {
	Address     common.Address // emitting contract
	BlockNumber int64
	Timestamp   int64 // block timestamp, unix seconds
	TxHash      common.Hash
	TxIndex     int
	LogIndex    int
}

// Meta returns the event context.
func (m EventMeta) Meta() EventMeta { return m }

// Event is a decoded on-chain event.
// Events are delivered ordered by (block, tx index, log index).
type Event interface {
	Type() EventType
	Meta() EventMeta
}

// PoolCreatedEvent is emitted by the factory when a pool is deployed.
type PoolCreatedEvent struct {
	EventMeta
	Pool common.Address
}

func (PoolCreatedEvent) Type() EventType { return EventPoolCreated }

// TokenBoundEvent is emitted by a pool when a token is bound to it.
type TokenBoundEvent struct {
	EventMeta
	Token common.Address
}

func (TokenBoundEvent) Type() EventType { return EventTokenBound }

// InstantSwapEvent is a one-shot swap. Amounts are raw token units.
type InstantSwapEvent struct {
	EventMeta
	Caller         common.Address
	TokenIn        common.Address
	TokenOut       common.Address
	TokenAmountIn  *big.Int
	TokenAmountOut *big.Int
}

func (InstantSwapEvent) Type() EventType { return EventInstantSwap }

// ContinuousRateSetEvent sets the input rate of a streaming swap.
type ContinuousRateSetEvent struct {
	EventMeta
	Caller      common.Address
	TokenIn     common.Address
	TokenOut    common.Address
	TokenRateIn *big.Int
	MinOut      *big.Int
	MaxOut      *big.Int
}

func (ContinuousRateSetEvent) Type() EventType { return EventContinuousRateSet }

// ContinuousRateOutUpdatedEvent reports a new realized output rate.
type ContinuousRateOutUpdatedEvent struct {
	EventMeta
	Receiver     common.Address
	TokenIn      common.Address
	TokenOut     common.Address
	TokenRateOut *big.Int
}

func (ContinuousRateOutUpdatedEvent) Type() EventType { return EventContinuousRateOutUpdated }

// JoinEvent deposits liquidity of one token.
type JoinEvent struct {
	EventMeta
	Caller        common.Address
	TokenIn       common.Address
	TokenAmountIn *big.Int
}

func (JoinEvent) Type() EventType { return EventJoin }

// ExitEvent withdraws liquidity of one token.
type ExitEvent struct {
	EventMeta
	Caller         common.Address
	TokenOut       common.Address
	TokenAmountOut *big.Int
}

func (ExitEvent) Type() EventType { return EventExit }
