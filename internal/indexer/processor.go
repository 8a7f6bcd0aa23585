// Package indexer applies StreamSwap events to the entity store.
//
// Each event is handled by exactly one handler. A handler reads what it
// needs, checks every precondition, stages its writes in a storage.Batch and
// commits them at once, so an aborted event leaves no partial state.
// Subscriptions and rollup notifications are issued after the commit.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/rollup"
	"streamswap-indexer/internal/storage"
)

// Options configures a Processor.
type Options struct {
	// Metadata fetches static token data on first binding. Required for
	// TokenBound events.
	Metadata MetadataSource

	// Subscriber receives new pool and token addresses. Nil discards them.
	Subscriber Subscriber

	// Rollups receives the day/hour notifications. Nil discards them.
	Rollups rollup.Updater

	// SkipDuplicateEvents records every applied (tx hash, log index) and
	// skips exact redeliveries.
	SkipDuplicateEvents bool

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Processor applies events to an entity store.
// It is not safe for concurrent use: events must be dispatched one at a time
// in (block, tx index, log index) order.
type Processor struct {
	store      storage.EntityStore
	metadata   MetadataSource
	subscriber Subscriber
	rollups    rollup.Updater
	skipDups   bool
	logger     *zap.Logger
}

// NewProcessor creates a Processor over store.
func NewProcessor(store storage.EntityStore, opts Options) *Processor {
	p := &Processor{
		store:      store,
		metadata:   opts.Metadata,
		subscriber: opts.Subscriber,
		rollups:    opts.Rollups,
		skipDups:   opts.SkipDuplicateEvents,
		logger:     opts.Logger,
	}
	if p.subscriber == nil {
		p.subscriber = nopSubscriber{}
	}
	if p.rollups == nil {
		p.rollups = rollup.Nop{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Dispatch routes an event to its handler. Events are passed by value.
func (p *Processor) Dispatch(ctx context.Context, ev domain.Event) error {
	var err error
	switch e := ev.(type) {
	case domain.PoolCreatedEvent:
		err = p.HandlePoolCreated(ctx, e)
	case domain.TokenBoundEvent:
		err = p.HandleTokenBound(ctx, e)
	case domain.InstantSwapEvent:
		err = p.HandleInstantSwap(ctx, e)
	case domain.ContinuousRateSetEvent:
		err = p.HandleContinuousRateSet(ctx, e)
	case domain.ContinuousRateOutUpdatedEvent:
		err = p.HandleContinuousRateOutUpdated(ctx, e)
	case domain.JoinEvent:
		err = p.HandleJoin(ctx, e)
	case domain.ExitEvent:
		err = p.HandleExit(ctx, e)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	if err != nil {
		eventType := "unknown"
		if ev != nil {
			eventType = string(ev.Type())
		}
		observability.RecordEventError(eventType, errorType(err))

		fields := []zap.Field{zap.String("event_type", eventType), zap.Error(err)}
		if ev != nil {
			m := ev.Meta()
			fields = append(fields,
				zap.Int64("block", m.BlockNumber),
				zap.String("tx", m.TxHash.Hex()),
				zap.Int("log_index", m.LogIndex),
			)
		}
		p.logger.Error("event processing failed", fields...)
	}
	return err
}

// begin opens a session for ev. It reports skip when the event was already
// applied and redeliveries are skipped.
func (p *Processor) begin(ctx context.Context, ev domain.Event) (s *session, skip bool, err error) {
	s = newSession(ctx, p, ev)
	if !p.skipDups {
		return s, false, nil
	}

	_, found, err := lookup[*domain.ProcessedEvent](s, domain.KindProcessedEvent, s.eventID())
	if err != nil {
		return nil, false, err
	}
	if found {
		observability.RecordEventSkipped(string(ev.Type()))
		p.logger.Debug("skipping redelivered event",
			zap.String("event_type", string(ev.Type())),
			zap.String("event_id", s.eventID()),
		)
		return nil, true, nil
	}
	return s, false, nil
}

func since(start time.Time) float64 {
	return time.Since(start).Seconds()
}
