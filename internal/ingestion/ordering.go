package ingestion

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/core/types"
)

// ErrInvalidOrdering is returned when logs are not properly ordered.
var ErrInvalidOrdering = errors.New("logs are not in deterministic order")

// LogEnvelope is a raw log together with the timestamp of its block.
// It is the unit captured to and replayed from JSONL files and Kafka.
type LogEnvelope struct {
	Log            types.Log `json:"log"`
	BlockTimestamp int64     `json:"blockTimestamp"`
}

// UnmarshalJSON decodes an envelope. Empty log data decodes to nil so a
// decoded envelope equals the one that was captured.
func (e *LogEnvelope) UnmarshalJSON(b []byte) error {
	type plain LogEnvelope
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if len(p.Log.Data) == 0 {
		p.Log.Data = nil
	}
	*e = LogEnvelope(p)
	return nil
}

// SortLogs orders logs by (block ASC, tx index ASC, log index ASC).
// This provides deterministic ordering based on blockchain order.
func SortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return compareLogs(&logs[i], &logs[j]) < 0
	})
}

// SortEnvelopes orders envelopes like SortLogs.
func SortEnvelopes(envs []LogEnvelope) {
	sort.SliceStable(envs, func(i, j int) bool {
		return compareLogs(&envs[i].Log, &envs[j].Log) < 0
	})
}

// ValidateOrdering checks that logs are strictly increasing.
// Returns ErrInvalidOrdering if not.
func ValidateOrdering(logs []types.Log) error {
	for i := 1; i < len(logs); i++ {
		if compareLogs(&logs[i-1], &logs[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareLogs returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (block ASC, tx index ASC, log index ASC)
func compareLogs(a, b *types.Log) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.TxIndex != b.TxIndex {
		if a.TxIndex < b.TxIndex {
			return -1
		}
		return 1
	}
	if a.Index != b.Index {
		if a.Index < b.Index {
			return -1
		}
		return 1
	}
	return 0
}
