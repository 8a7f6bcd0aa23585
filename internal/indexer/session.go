package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/storage"
)

type cacheKey struct {
	kind domain.EntityKind
	id   string
}

// rollupCall is one deferred rollup notification.
type rollupCall struct {
	kind domain.RollupKind
	run  func(ctx context.Context) error
}

// session is the unit of work of one event. Loaded entities are cached so a
// handler sees its own staged writes; nothing reaches the store before finish.
type session struct {
	ctx   context.Context
	p     *Processor
	ev    domain.Event
	meta  domain.EventMeta
	start time.Time

	cache   map[cacheKey]domain.Entity // nil value: staged removal
	batch   *storage.Batch
	rollups []rollupCall
	pools   []common.Address
	tokens  []common.Address
}

func newSession(ctx context.Context, p *Processor, ev domain.Event) *session {
	return &session{
		ctx:   ctx,
		p:     p,
		ev:    ev,
		meta:  ev.Meta(),
		start: time.Now(),
		cache: make(map[cacheKey]domain.Entity),
		batch: storage.NewBatch(),
	}
}

func (s *session) eventID() string {
	return idhash.EventID(idhash.TransactionID(s.meta.TxHash), s.meta.LogIndex)
}

func (s *session) poolID() string {
	return idhash.AddressID(s.meta.Address)
}

// lookup returns the entity and whether it exists. Store failures are errors;
// absence is not.
func lookup[T domain.Entity](s *session, kind domain.EntityKind, id string) (T, bool, error) {
	var zero T
	k := cacheKey{kind, id}
	if e, ok := s.cache[k]; ok {
		if e == nil {
			return zero, false, nil
		}
		v, ok := e.(T)
		if !ok {
			return zero, false, fmt.Errorf("%w: cached %s %s has type %T", storage.ErrInvalidInput, kind, id, e)
		}
		return v, true, nil
	}

	v, err := storage.Get[T](s.ctx, s.p.store, kind, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	s.cache[k] = v
	return v, true, nil
}

// need is lookup for entities that must exist.
// Absence is a precondition violation.
func need[T domain.Entity](s *session, kind domain.EntityKind, id string) (T, error) {
	v, found, err := lookup[T](s, kind, id)
	if err != nil {
		return v, err
	}
	if !found {
		return v, fmt.Errorf("%w: %s %s does not exist", ErrPreconditionViolation, kind, id)
	}
	return v, nil
}

// put stages an upsert.
func (s *session) put(e domain.Entity) {
	s.cache[cacheKey{e.Kind(), e.Key()}] = e
	s.batch.Put(e)
}

// remove stages a removal. Removing an absent entity is a no-op.
func (s *session) remove(kind domain.EntityKind, id string) {
	s.cache[cacheKey{kind, id}] = nil
	s.batch.Delete(kind, id)
}

// watchPool and watchToken queue subscription registrations.
func (s *session) watchPool(addr common.Address)  { s.pools = append(s.pools, addr) }
func (s *session) watchToken(addr common.Address) { s.tokens = append(s.tokens, addr) }

// notifyPool queues the pool day and hour notifications.
func (s *session) notifyPool(category domain.RollupCategory) {
	meta, r := s.meta, s.p.rollups
	s.rollups = append(s.rollups,
		rollupCall{domain.RollupPoolDay, func(ctx context.Context) error { return r.PoolDay(ctx, meta, category) }},
		rollupCall{domain.RollupPoolHour, func(ctx context.Context) error { return r.PoolHour(ctx, meta, category) }},
	)
}

// notifyToken queues the token day notification.
func (s *session) notifyToken(tokenID string, category domain.RollupCategory) {
	meta, r := s.meta, s.p.rollups
	s.rollups = append(s.rollups,
		rollupCall{domain.RollupTokenDay, func(ctx context.Context) error { return r.TokenDay(ctx, tokenID, meta, category) }},
	)
}

// finish commits the staged writes, then registers subscriptions and runs
// the rollup notifications. Rollup failures are logged, not returned.
func (s *session) finish() error {
	if s.p.skipDups {
		s.put(&domain.ProcessedEvent{ID: s.eventID(), BlockNumber: s.meta.BlockNumber})
	}

	if err := s.p.store.Commit(s.ctx, s.batch); err != nil {
		return fmt.Errorf("commit %s: %w", s.ev.Type(), err)
	}

	for _, addr := range s.pools {
		s.p.subscriber.WatchPool(addr)
	}
	for _, addr := range s.tokens {
		s.p.subscriber.WatchToken(addr)
	}

	for _, call := range s.rollups {
		if err := call.run(s.ctx); err != nil {
			observability.RecordRollupFailure(string(call.kind))
			s.p.logger.Warn("rollup notification failed",
				zap.String("rollup", string(call.kind)),
				zap.String("event_type", string(s.ev.Type())),
				zap.Int64("block", s.meta.BlockNumber),
				zap.Error(err),
			)
		}
	}

	observability.RecordEventProcessed(string(s.ev.Type()), since(s.start))
	s.p.logger.Debug("event applied",
		zap.String("event_type", string(s.ev.Type())),
		zap.Int64("block", s.meta.BlockNumber),
		zap.Int("log_index", s.meta.LogIndex),
		zap.Int("writes", s.batch.Len()),
	)
	return nil
}
