package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Chain errors.
var (
	// ErrUnknownLog is returned for a log whose topic is not a known event.
	ErrUnknownLog = errors.New("unknown log topic")

	// ErrMalformedLog is returned when a known event's topics or data do not decode.
	ErrMalformedLog = errors.New("malformed log")

	// ErrClientClosed is returned by a closed websocket client.
	ErrClientClosed = errors.New("client closed")
)

// revertErrorCode is the JSON-RPC code geth uses for reverts carrying data.
const revertErrorCode = 3

// IsExecutionReverted reports whether err is a node's answer that the call
// reverted. Transport failures, timeouts and cancellation are not reverts.
func IsExecutionReverted(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(rpcErr.Error(), "execution reverted")
}
