// Package rollup turns processed events into time-bucketed activity counts.
package rollup

import (
	"context"
	"fmt"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
	"streamswap-indexer/internal/storage"
)

// Bucket intervals in seconds.
const (
	DaySeconds  int64 = 86400
	HourSeconds int64 = 3600
)

// Updater receives the rollup notifications of processed events.
// The pool of PoolDay and PoolHour is the emitting contract of the event.
type Updater interface {
	PoolDay(ctx context.Context, meta domain.EventMeta, category domain.RollupCategory) error
	PoolHour(ctx context.Context, meta domain.EventMeta, category domain.RollupCategory) error
	TokenDay(ctx context.Context, tokenID string, meta domain.EventMeta, category domain.RollupCategory) error
}

// DayStart returns the start of the UTC day containing ts.
func DayStart(ts int64) int64 {
	return bucketStart(ts, DaySeconds)
}

// HourStart returns the start of the hour containing ts.
func HourStart(ts int64) int64 {
	return bucketStart(ts, HourSeconds)
}

func bucketStart(ts, interval int64) int64 {
	start := ts / interval * interval
	if ts < 0 && ts%interval != 0 {
		start -= interval
	}
	return start
}

// Aggregator writes one bucket per notification to a sink.
type Aggregator struct {
	sink storage.RollupSink
}

// NewAggregator creates an Aggregator writing to sink.
func NewAggregator(sink storage.RollupSink) *Aggregator {
	return &Aggregator{sink: sink}
}

// PoolDay counts the event in the pool's daily bucket.
func (a *Aggregator) PoolDay(ctx context.Context, meta domain.EventMeta, category domain.RollupCategory) error {
	return a.write(ctx, domain.RollupPoolDay, idhash.AddressID(meta.Address), DayStart(meta.Timestamp), meta, category)
}

// PoolHour counts the event in the pool's hourly bucket.
func (a *Aggregator) PoolHour(ctx context.Context, meta domain.EventMeta, category domain.RollupCategory) error {
	return a.write(ctx, domain.RollupPoolHour, idhash.AddressID(meta.Address), HourStart(meta.Timestamp), meta, category)
}

// TokenDay counts the event in the token's daily bucket.
func (a *Aggregator) TokenDay(ctx context.Context, tokenID string, meta domain.EventMeta, category domain.RollupCategory) error {
	return a.write(ctx, domain.RollupTokenDay, tokenID, DayStart(meta.Timestamp), meta, category)
}

func (a *Aggregator) write(ctx context.Context, kind domain.RollupKind, entityID string, start int64, meta domain.EventMeta, category domain.RollupCategory) error {
	bucket := domain.RollupBucket{
		Kind:        kind,
		EntityID:    entityID,
		BucketStart: start,
		Category:    category,
		BlockNumber: meta.BlockNumber,
		EventCount:  1,
	}
	if err := a.sink.WriteBuckets(ctx, []domain.RollupBucket{bucket}); err != nil {
		return fmt.Errorf("write %s bucket for %s: %w", kind, entityID, err)
	}
	return nil
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) PoolDay(context.Context, domain.EventMeta, domain.RollupCategory) error  { return nil }
func (Nop) PoolHour(context.Context, domain.EventMeta, domain.RollupCategory) error { return nil }
func (Nop) TokenDay(context.Context, string, domain.EventMeta, domain.RollupCategory) error {
	return nil
}

var (
	_ Updater = (*Aggregator)(nil)
	_ Updater = Nop{}
)
