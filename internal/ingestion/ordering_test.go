package ingestion

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
)

func TestSortLogs(t *testing.T) {
	// Intentionally unordered logs
	logs := []types.Log{
		{BlockNumber: 200, TxIndex: 1, Index: 0},
		{BlockNumber: 100, TxIndex: 0, Index: 1},
		{BlockNumber: 100, TxIndex: 0, Index: 0},
		{BlockNumber: 100, TxIndex: 1, Index: 2},
		{BlockNumber: 300, TxIndex: 0, Index: 0},
	}

	SortLogs(logs)

	// Verify order: (block ASC, tx index ASC, log index ASC)
	expected := []struct {
		block    uint64
		txIndex  uint
		logIndex uint
	}{
		{100, 0, 0},
		{100, 0, 1},
		{100, 1, 2},
		{200, 1, 0},
		{300, 0, 0},
	}

	for i, exp := range expected {
		if logs[i].BlockNumber != exp.block || logs[i].TxIndex != exp.txIndex || logs[i].Index != exp.logIndex {
			t.Errorf("Index %d: got (%d, %d, %d), want (%d, %d, %d)",
				i, logs[i].BlockNumber, logs[i].TxIndex, logs[i].Index,
				exp.block, exp.txIndex, exp.logIndex)
		}
	}

	if err := ValidateOrdering(logs); err != nil {
		t.Errorf("sorted logs should validate: %v", err)
	}
}

func TestSortLogs_Empty(t *testing.T) {
	var logs []types.Log
	SortLogs(logs) // Should not panic
}

func TestSortEnvelopes(t *testing.T) {
	envs := []LogEnvelope{
		{Log: types.Log{BlockNumber: 2}, BlockTimestamp: 20},
		{Log: types.Log{BlockNumber: 1, Index: 1}, BlockTimestamp: 10},
		{Log: types.Log{BlockNumber: 1, Index: 0}, BlockTimestamp: 10},
	}

	SortEnvelopes(envs)

	if envs[0].Log.Index != 0 || envs[1].Log.Index != 1 || envs[2].BlockTimestamp != 20 {
		t.Errorf("unexpected order: %+v", envs)
	}
}

func TestValidateOrdering_Unordered(t *testing.T) {
	logs := []types.Log{
		{BlockNumber: 100, Index: 1},
		{BlockNumber: 100, Index: 0},
	}

	if err := ValidateOrdering(logs); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering, got %v", err)
	}
}

func TestValidateOrdering_Duplicate(t *testing.T) {
	logs := []types.Log{
		{BlockNumber: 100, TxIndex: 2, Index: 5},
		{BlockNumber: 100, TxIndex: 2, Index: 5},
	}

	if err := ValidateOrdering(logs); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering for duplicate position, got %v", err)
	}
}
