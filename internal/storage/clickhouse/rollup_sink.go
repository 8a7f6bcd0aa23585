package clickhouse

import (
	"context"
	"fmt"
	"time"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/storage"
)

// RollupSink implements storage.RollupSink using a SummingMergeTree table.
type RollupSink struct {
	conn *Conn
}

// NewRollupSink creates a new RollupSink.
func NewRollupSink(conn *Conn) *RollupSink {
	return &RollupSink{conn: conn}
}

// Compile-time interface check.
var _ storage.RollupSink = (*RollupSink)(nil)

// WriteBuckets appends the buckets. Rows with the same key are summed by
// the table engine on merge.
func (s *RollupSink) WriteBuckets(ctx context.Context, buckets []domain.RollupBucket) (err error) {
	if len(buckets) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "write_buckets", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO rollup_buckets (
			kind, entity_id, bucket_start, category, last_block, event_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range buckets {
		if b.EntityID == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			string(b.Kind), b.EntityID, b.BucketStart, string(b.Category), b.BlockNumber, b.EventCount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountFor returns the summed event count of one aggregate cell.
func (s *RollupSink) CountFor(ctx context.Context, kind domain.RollupKind, entityID string, bucketStart int64, category domain.RollupCategory) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT sum(event_count) FROM rollup_buckets
		WHERE kind = ? AND entity_id = ? AND bucket_start = ? AND category = ?
	`, string(kind), entityID, bucketStart, string(category)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query rollup count: %w", err)
	}
	return count, nil
}
