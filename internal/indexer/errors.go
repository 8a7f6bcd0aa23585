package indexer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Indexer errors.
var (
	// ErrPreconditionViolation is returned when an entity that must already
	// exist (pool, token, pooled token, continuous swap) is missing. The
	// event is aborted with no writes.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrUnknownEvent is returned by Dispatch for an event type with no handler.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrMetadataUnavailable is returned when token metadata cannot be fetched
	// for a newly bound token.
	ErrMetadataUnavailable = errors.New("token metadata unavailable")
)

// distinctTokens rejects a swap whose in and out token are the same. Both
// sides would resolve to one cached entity and be applied twice.
func distinctTokens(in, out common.Address) error {
	if in == out {
		return fmt.Errorf("%w: token in and token out are both %s", ErrPreconditionViolation, in.Hex())
	}
	return nil
}

// errorType maps an error to the label used in metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrPreconditionViolation):
		return "precondition"
	case errors.Is(err, ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, ErrMetadataUnavailable):
		return "metadata"
	default:
		return "store"
	}
}
