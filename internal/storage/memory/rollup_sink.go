package memory

import (
	"context"
	"sync"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage"
)

// RollupKey identifies one aggregate cell.
type RollupKey struct {
	Kind        domain.RollupKind
	EntityID    string
	BucketStart int64
	Category    domain.RollupCategory
}

// RollupSink is an in-memory implementation of storage.RollupSink.
// It sums event counts per cell, like the SummingMergeTree table does.
type RollupSink struct {
	mu     sync.RWMutex
	counts map[RollupKey]uint64
	writes int
}

// NewRollupSink creates a new in-memory rollup sink.
func NewRollupSink() *RollupSink {
	return &RollupSink{counts: make(map[RollupKey]uint64)}
}

// WriteBuckets adds the bucket counts to the aggregates.
func (s *RollupSink) WriteBuckets(_ context.Context, buckets []domain.RollupBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range buckets {
		if b.EntityID == "" {
			return storage.ErrInvalidInput
		}
		k := RollupKey{Kind: b.Kind, EntityID: b.EntityID, BucketStart: b.BucketStart, Category: b.Category}
		s.counts[k] += b.EventCount
		s.writes++
	}
	return nil
}

// Count returns the summed count of a cell.
func (s *RollupSink) Count(k RollupKey) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[k]
}

// CountFor sums a cell across all buckets for the entity, kind and category.
func (s *RollupSink) CountFor(kind domain.RollupKind, entityID string, category domain.RollupCategory) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	for k, v := range s.counts {
		if k.Kind == kind && k.EntityID == entityID && k.Category == category {
			total += v
		}
	}
	return total
}

// Writes returns the number of buckets written.
func (s *RollupSink) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

var _ storage.RollupSink = (*RollupSink)(nil)
