package chain

import "context"

// HeadSubscriber delivers new block headers as they are produced.
type HeadSubscriber interface {
	// SubscribeNewHeads subscribes to eth_subscribe("newHeads").
	SubscribeNewHeads(ctx context.Context) (<-chan Head, error)

	// Close closes the WebSocket connection.
	Close() error
}

// Head is the part of a newHeads notification the indexer uses.
type Head struct {
	Number    int64
	Hash      string
	Timestamp int64
}
