package domain

// RollupCategory tags a rollup notification with the swap mode that caused it.
type RollupCategory string

// Rollup categories. CategoryNone is used by uncategorized notifications.
const (
	CategoryNone       RollupCategory = ""
	CategoryInstant    RollupCategory = "instant"
	CategoryContinuous RollupCategory = "continuous"
)

// RollupKind identifies the aggregate a bucket belongs to.
type RollupKind string

// Rollup kinds.
const (
	RollupPoolDay  RollupKind = "pool_day"
	RollupPoolHour RollupKind = "pool_hour"
	RollupTokenDay RollupKind = "token_day"
)

// RollupBucket is one write to a time-bucketed aggregate.
// Sinks sum EventCount over equal (Kind, EntityID, BucketStart, Category).
type RollupBucket struct {
	Kind        RollupKind
	EntityID    string
	BucketStart int64 // unix seconds, aligned to the bucket interval
	Category    RollupCategory
	BlockNumber int64
	EventCount  uint64
}
