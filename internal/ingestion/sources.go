package ingestion

import (
	"context"
	"errors"
	"io"

	"streamswap-indexer/internal/domain"
)

// EventHandler applies decoded events. Implemented by *indexer.Processor.
type EventHandler interface {
	Dispatch(ctx context.Context, ev domain.Event) error
}

// LogSource yields captured logs one at a time.
type LogSource interface {
	// Next returns the next envelope, or io.EOF when a finite source is exhausted.
	Next(ctx context.Context) (LogEnvelope, error)

	// Ack marks an envelope as applied. Sources with offsets commit them here.
	Ack(ctx context.Context, env LogEnvelope) error

	Close() error
}

// LogSink receives every log the poller is about to apply.
type LogSink interface {
	Publish(ctx context.Context, envs []LogEnvelope) error
	Close() error
}

// SliceSource serves envelopes from memory.
type SliceSource struct {
	envs []LogEnvelope
	pos  int
}

// NewSliceSource creates a source over envs in the given order.
func NewSliceSource(envs []LogEnvelope) *SliceSource {
	return &SliceSource{envs: envs}
}

// Next returns the next envelope or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (LogEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return LogEnvelope{}, err
	}
	if s.pos >= len(s.envs) {
		return LogEnvelope{}, io.EOF
	}
	env := s.envs[s.pos]
	s.pos++
	return env, nil
}

// Ack is a no-op.
func (s *SliceSource) Ack(context.Context, LogEnvelope) error { return nil }

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }

// ReadAll drains a finite source.
func ReadAll(ctx context.Context, src LogSource) ([]LogEnvelope, error) {
	var out []LogEnvelope
	for {
		env, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, env)
	}
}
