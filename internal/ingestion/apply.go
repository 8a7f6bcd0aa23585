package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"streamswap-indexer/internal/chain"
	"streamswap-indexer/internal/observability"
)

// applyLog decodes one log and hands the event to the handler.
// Logs with unknown topics are counted and skipped.
func applyLog(ctx context.Context, dec *chain.Decoder, h EventHandler, env LogEnvelope, logger *zap.Logger) (bool, error) {
	ev, err := dec.Decode(env.Log, env.BlockTimestamp)
	if errors.Is(err, chain.ErrUnknownLog) {
		observability.RecordLogUndecodable()
		logger.Debug("skipping unknown log",
			zap.Uint64("block", env.Log.BlockNumber),
			zap.Uint("log_index", env.Log.Index),
			zap.Stringer("address", env.Log.Address))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("decode log %s/%d: %w", env.Log.TxHash.Hex(), env.Log.Index, err)
	}
	if err := h.Dispatch(ctx, ev); err != nil {
		return false, fmt.Errorf("block %d log %d: %w", env.Log.BlockNumber, env.Log.Index, err)
	}
	observability.UpdateHighestBlock(int64(env.Log.BlockNumber), time.Now().Unix())
	return true, nil
}
