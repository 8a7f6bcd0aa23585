package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Event names emitted by the factory and pool contracts.
const (
	EventNewPool     = "LOG_NEW_POOL"
	EventBindNew     = "LOG_BIND_NEW"
	EventSwap        = "LOG_SWAP"
	EventSetFlow     = "LOG_SET_FLOW"
	EventSetFlowRate = "LOG_SET_FLOW_RATE"
	EventJoin        = "LOG_JOIN"
	EventExit        = "LOG_EXIT"
)

const poolEventsJSON = `[
{"anonymous":false,"type":"event","name":"LOG_NEW_POOL","inputs":[
 {"indexed":true,"name":"caller","type":"address"},
 {"indexed":true,"name":"pool","type":"address"}]},
{"anonymous":false,"type":"event","name":"LOG_BIND_NEW","inputs":[
 {"indexed":true,"name":"token","type":"address"}]},
{"anonymous":false,"type":"event","name":"LOG_SWAP","inputs":[
 {"indexed":true,"name":"caller","type":"address"},
 {"indexed":true,"name":"tokenIn","type":"address"},
 {"indexed":true,"name":"tokenOut","type":"address"},
 {"indexed":false,"name":"tokenAmountIn","type":"uint256"},
 {"indexed":false,"name":"tokenAmountOut","type":"uint256"}]},
{"anonymous":false,"type":"event","name":"LOG_SET_FLOW","inputs":[
 {"indexed":true,"name":"caller","type":"address"},
 {"indexed":true,"name":"tokenIn","type":"address"},
 {"indexed":true,"name":"tokenOut","type":"address"},
 {"indexed":false,"name":"tokenRateIn","type":"uint256"},
 {"indexed":false,"name":"minOut","type":"uint256"},
 {"indexed":false,"name":"maxOut","type":"uint256"}]},
{"anonymous":false,"type":"event","name":"LOG_SET_FLOW_RATE","inputs":[
 {"indexed":true,"name":"receiver","type":"address"},
 {"indexed":true,"name":"tokenIn","type":"address"},
 {"indexed":true,"name":"tokenOut","type":"address"},
 {"indexed":false,"name":"tokenRateOut","type":"uint256"}]},
{"anonymous":false,"type":"event","name":"LOG_JOIN","inputs":[
 {"indexed":true,"name":"caller","type":"address"},
 {"indexed":true,"name":"tokenIn","type":"address"},
 {"indexed":false,"name":"tokenAmountIn","type":"uint256"}]},
{"anonymous":false,"type":"event","name":"LOG_EXIT","inputs":[
 {"indexed":true,"name":"caller","type":"address"},
 {"indexed":true,"name":"tokenOut","type":"address"},
 {"indexed":false,"name":"tokenAmountOut","type":"uint256"}]}
]`

const tokenJSON = `[
{"constant":true,"type":"function","stateMutability":"view","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"constant":true,"type":"function","stateMutability":"view","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"constant":true,"type":"function","stateMutability":"view","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"constant":true,"type":"function","stateMutability":"view","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"constant":true,"type":"function","stateMutability":"view","name":"getUnderlyingToken","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

var (
	// PoolEventsABI describes the factory and pool events.
	PoolEventsABI = mustParseABI(poolEventsJSON)

	// TokenABI describes the token metadata getters.
	TokenABI = mustParseABI(tokenJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("chain: parse abi: " + err.Error())
	}
	return parsed
}

// FactoryTopics returns the topic0 values emitted by factory contracts.
func FactoryTopics() []common.Hash {
	return []common.Hash{PoolEventsABI.Events[EventNewPool].ID}
}

// PoolTopics returns the topic0 values emitted by pool contracts.
func PoolTopics() []common.Hash {
	names := []string{EventBindNew, EventSwap, EventSetFlow, EventSetFlowRate, EventJoin, EventExit}
	topics := make([]common.Hash, 0, len(names))
	for _, n := range names {
		topics = append(topics, PoolEventsABI.Events[n].ID)
	}
	return topics
}

// AllTopics returns every topic0 the decoder understands.
func AllTopics() []common.Hash {
	return append(FactoryTopics(), PoolTopics()...)
}
