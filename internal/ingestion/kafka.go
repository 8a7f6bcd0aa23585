package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds Kafka connection configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// captureKey routes every envelope to the same partition so consumers see
// them in publish order.
var captureKey = []byte("streamswap-logs")

// KafkaSink publishes envelopes to a topic.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a producer for cfg.Topic.
func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish writes envs as one batch.
func (s *KafkaSink) Publish(ctx context.Context, envs []LogEnvelope) error {
	if len(envs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(envs))
	for i := range envs {
		data, err := json.Marshal(&envs[i])
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		msgs[i] = kafka.Message{Key: captureKey, Value: data}
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// KafkaSource consumes envelopes from a topic with explicit offset commits.
// It never returns io.EOF.
type KafkaSource struct {
	reader *kafka.Reader

	mu      sync.Mutex
	pending map[string]kafka.Message
}

// NewKafkaSource creates a consumer group reader for cfg.Topic.
func NewKafkaSource(cfg KafkaConfig) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return &KafkaSource{
		reader:  reader,
		pending: make(map[string]kafka.Message),
	}
}

// Next fetches and decodes the next message.
func (s *KafkaSource) Next(ctx context.Context) (LogEnvelope, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return LogEnvelope{}, fmt.Errorf("fetch message: %w", err)
	}
	var env LogEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return LogEnvelope{}, fmt.Errorf("decode message at offset %d: %w", msg.Offset, err)
	}
	s.mu.Lock()
	s.pending[positionKey(env)] = msg
	s.mu.Unlock()
	return env, nil
}

// Ack commits the offset of the message env was read from.
func (s *KafkaSource) Ack(ctx context.Context, env LogEnvelope) error {
	key := positionKey(env)
	s.mu.Lock()
	msg, ok := s.pending[key]
	delete(s.pending, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

// Close closes the reader.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

func positionKey(env LogEnvelope) string {
	return strconv.FormatUint(env.Log.BlockNumber, 10) + "-" +
		strconv.FormatUint(uint64(env.Log.TxIndex), 10) + "-" +
		strconv.FormatUint(uint64(env.Log.Index), 10)
}
