package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

const maxJSONLLine = 4 << 20

// JSONLSource reads one LogEnvelope per line.
type JSONLSource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// OpenJSONLSource opens a capture file.
func OpenJSONLSource(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src := NewJSONLSource(f)
	src.closer = f
	return src, nil
}

// NewJSONLSource reads envelopes from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxJSONLLine)
	return &JSONLSource{scanner: sc}
}

// Next returns the next envelope. Blank lines are skipped.
func (s *JSONLSource) Next(ctx context.Context) (LogEnvelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return LogEnvelope{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return LogEnvelope{}, fmt.Errorf("read line %d: %w", s.line+1, err)
			}
			return LogEnvelope{}, io.EOF
		}
		s.line++
		b := s.scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var env LogEnvelope
		if err := json.Unmarshal(b, &env); err != nil {
			return LogEnvelope{}, fmt.Errorf("decode line %d: %w", s.line, err)
		}
		return env, nil
	}
}

// Ack is a no-op: files have no offsets.
func (s *JSONLSource) Ack(context.Context, LogEnvelope) error { return nil }

// Close closes the underlying file, if any.
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// JSONLSink appends envelopes to a writer, one per line.
type JSONLSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// CreateJSONLSink opens path for appending.
func CreateJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := NewJSONLSink(f)
	s.closer = f
	return s, nil
}

// NewJSONLSink writes envelopes to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: bufio.NewWriter(w)}
}

// Publish writes the envelopes and flushes.
func (s *JSONLSink) Publish(_ context.Context, envs []LogEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	for i := range envs {
		if err := enc.Encode(&envs[i]); err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
	}
	return s.w.Flush()
}

// Close flushes and closes the underlying file, if any.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
