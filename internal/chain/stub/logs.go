package stub

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"streamswap-indexer/internal/chain"
)

// LogPosition places a log in the chain.
type LogPosition struct {
	Block    uint64
	TxIndex  uint
	LogIndex uint
}

// EventLog builds a log for a pool or factory event. Indexed arguments are
// addresses in declaration order; amounts are the non-indexed uint256 values.
// The transaction hash is derived from block and tx index.
func EventLog(emitter common.Address, pos LogPosition, event string, indexed []common.Address, amounts ...*big.Int) types.Log {
	ev, ok := chain.PoolEventsABI.Events[event]
	if !ok {
		panic("stub: unknown event " + event)
	}
	topics := []common.Hash{ev.ID}
	for _, a := range indexed {
		topics = append(topics, common.BytesToHash(a.Bytes()))
	}
	values := make([]interface{}, len(amounts))
	for i, a := range amounts {
		values[i] = a
	}
	data, err := ev.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		panic(fmt.Sprintf("stub: pack %s: %v", event, err))
	}
	if len(data) == 0 {
		data = nil
	}
	return types.Log{
		Address:     emitter,
		Topics:      topics,
		Data:        data,
		BlockNumber: pos.Block,
		TxHash:      TxHash(pos.Block, pos.TxIndex),
		TxIndex:     pos.TxIndex,
		Index:       pos.LogIndex,
	}
}

// TxHash is the deterministic transaction hash used by EventLog.
func TxHash(block uint64, txIndex uint) common.Hash {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d-%d", block, txIndex)))
}
