package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"elarocks/config"
	"elarocks/internal/model"
	"elarocks/internal/schema"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderRunID     = "run_id"
	HeaderEventCode = "event_code"
)

// RecordPublisher fans extracted records out to a topic.
type RecordPublisher interface {
	Publish(ctx context.Context, runID, eventCode string, batch model.Batch) error
	Close() error
}

type kafkaRecordPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewRecordPublisher returns nil when no brokers are configured.
func NewRecordPublisher(cfg config.KafkaConfig) RecordPublisher {
	if !cfg.Enabled() {
		log.Info().Msg("Kafka brokers not configured, record publishing disabled")
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.RecordTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.RecordTopic).Msg("Kafka record publisher initialized")
	return &kafkaRecordPublisher{writer: writer, topic: cfg.RecordTopic}
}

func (p *kafkaRecordPublisher) Publish(ctx context.Context, runID, eventCode string, batch model.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	messages, err := buildMessages(runID, eventCode, batch)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}
	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")
	return nil
}

func (p *kafkaRecordPublisher) Close() error {
	return p.writer.Close()
}

// buildMessages keys each record by agent id so one agent's records share a partition.
func buildMessages(runID, eventCode string, batch model.Batch) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(batch))
	for i, record := range batch {
		value, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("marshal record %d: %w", i, err)
		}
		var key []byte
		if agentID, ok := record.Get(schema.FieldAgentID); ok {
			key = []byte(agentID)
		}
		messages = append(messages, kafka.Message{
			Key:   key,
			Value: value,
			Headers: []kafka.Header{
				{Key: HeaderRunID, Value: []byte(runID)},
				{Key: HeaderEventCode, Value: []byte(eventCode)},
			},
		})
	}
	return messages, nil
}
