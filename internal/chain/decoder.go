package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"streamswap-indexer/internal/domain"
)

// Decoder turns raw logs into domain events.
type Decoder struct {
	events map[common.Hash]abi.Event
}

// NewDecoder creates a decoder for the pool and factory events.
func NewDecoder() *Decoder {
	d := &Decoder{events: make(map[common.Hash]abi.Event, len(PoolEventsABI.Events))}
	for _, ev := range PoolEventsABI.Events {
		d.events[ev.ID] = ev
	}
	return d
}

// Known reports whether the log's first topic is a decodable event.
func (d *Decoder) Known(lg types.Log) bool {
	if len(lg.Topics) == 0 {
		return false
	}
	_, ok := d.events[lg.Topics[0]]
	return ok
}

// Decode converts a log emitted in a block with the given timestamp.
// Returns ErrUnknownLog for foreign topics and ErrMalformedLog when a known
// event does not decode.
func (d *Decoder) Decode(lg types.Log, blockTimestamp int64) (domain.Event, error) {
	if len(lg.Topics) == 0 {
		return nil, ErrUnknownLog
	}
	ev, ok := d.events[lg.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLog, lg.Topics[0].Hex())
	}

	indexed := 0
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed++
		}
	}
	if len(lg.Topics) != indexed+1 {
		return nil, fmt.Errorf("%w: %s has %d topics, want %d", ErrMalformedLog, ev.Name, len(lg.Topics), indexed+1)
	}

	values, err := PoolEventsABI.Unpack(ev.Name, lg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrMalformedLog, ev.Name, err)
	}
	amounts := make([]*big.Int, 0, len(values))
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("%w: %s value %d has type %T", ErrMalformedLog, ev.Name, i, v)
		}
		amounts = append(amounts, n)
	}

	meta := domain.EventMeta{
		Address:     lg.Address,
		BlockNumber: int64(lg.BlockNumber),
		Timestamp:   blockTimestamp,
		TxHash:      lg.TxHash,
		TxIndex:     int(lg.TxIndex),
		LogIndex:    int(lg.Index),
	}
	topic := func(i int) common.Address { return common.BytesToAddress(lg.Topics[i].Bytes()) }

	switch ev.Name {
	case EventNewPool:
		return domain.PoolCreatedEvent{EventMeta: meta, Pool: topic(2)}, nil
	case EventBindNew:
		return domain.TokenBoundEvent{EventMeta: meta, Token: topic(1)}, nil
	case EventSwap:
		return domain.InstantSwapEvent{
			EventMeta:      meta,
			Caller:         topic(1),
			TokenIn:        topic(2),
			TokenOut:       topic(3),
			TokenAmountIn:  amounts[0],
			TokenAmountOut: amounts[1],
		}, nil
	case EventSetFlow:
		return domain.ContinuousRateSetEvent{
			EventMeta:   meta,
			Caller:      topic(1),
			TokenIn:     topic(2),
			TokenOut:    topic(3),
			TokenRateIn: amounts[0],
			MinOut:      amounts[1],
			MaxOut:      amounts[2],
		}, nil
	case EventSetFlowRate:
		return domain.ContinuousRateOutUpdatedEvent{
			EventMeta:    meta,
			Receiver:     topic(1),
			TokenIn:      topic(2),
			TokenOut:     topic(3),
			TokenRateOut: amounts[0],
		}, nil
	case EventJoin:
		return domain.JoinEvent{EventMeta: meta, Caller: topic(1), TokenIn: topic(2), TokenAmountIn: amounts[0]}, nil
	case EventExit:
		return domain.ExitEvent{EventMeta: meta, Caller: topic(1), TokenOut: topic(2), TokenAmountOut: amounts[0]}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownLog, ev.Name)
}
