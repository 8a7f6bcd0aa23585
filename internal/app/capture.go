package app

import (
	"context"
	"errors"
	"fmt"

	"streamswap-indexer/internal/config"
	"streamswap-indexer/internal/ingestion"
)

// KafkaTarget selects the configured Kafka topic instead of a file.
const KafkaTarget = "kafka"

func kafkaConfig(cfg config.KafkaConfig) (ingestion.KafkaConfig, error) {
	if len(cfg.Brokers) == 0 {
		return ingestion.KafkaConfig{}, errors.New("kafka.brokers is required")
	}
	if cfg.Topic == "" {
		return ingestion.KafkaConfig{}, errors.New("kafka.topic is required")
	}
	return ingestion.KafkaConfig{Brokers: cfg.Brokers, Topic: cfg.Topic, GroupID: cfg.GroupID}, nil
}

// OpenCapture returns the sink raw logs are copied to. target is empty for
// none, KafkaTarget for the configured topic, or a JSONL file path.
func OpenCapture(target string, cfg config.KafkaConfig) (ingestion.LogSink, error) {
	switch target {
	case "":
		return nil, nil
	case KafkaTarget:
		kc, err := kafkaConfig(cfg)
		if err != nil {
			return nil, err
		}
		return ingestion.NewKafkaSink(kc), nil
	default:
		sink, err := ingestion.CreateJSONLSink(target)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
}

// OpenReplaySource returns the captured log source named by target:
// KafkaTarget for the configured topic and consumer group, otherwise a
// JSONL file path. File captures are read fully and sorted, since several
// capture runs may have appended to the same file.
func OpenReplaySource(ctx context.Context, target string, cfg config.KafkaConfig) (ingestion.LogSource, error) {
	switch target {
	case "":
		return nil, errors.New("replay source is required")
	case KafkaTarget:
		kc, err := kafkaConfig(cfg)
		if err != nil {
			return nil, err
		}
		if kc.GroupID == "" {
			return nil, errors.New("kafka.group_id is required for replay")
		}
		return ingestion.NewKafkaSource(kc), nil
	default:
		f, err := ingestion.OpenJSONLSource(target)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		envs, err := ingestion.ReadAll(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", target, err)
		}
		ingestion.SortEnvelopes(envs)
		return ingestion.NewSliceSource(envs), nil
	}
}
