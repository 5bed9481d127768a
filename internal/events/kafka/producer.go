package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names an auth lifecycle event.
type EventType string

const (
	EventUserRegistered EventType = "auth.user.registered.v1"
	EventUserLoggedIn   EventType = "auth.user.login.v1"
	EventUserLoggedOut  EventType = "auth.user.logout.v1"
)

// CloudEvent is the CloudEvents v1.0 envelope used on the auth topic.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data,omitempty"`
}

// Producer publishes auth lifecycle events. Publication is best-effort from
// the orchestrator's point of view; delivery semantics belong to the
// notification pipeline.
type Producer interface {
	Publish(ctx context.Context, eventType EventType, subject string, data interface{}) error
	Close() error
}

type kafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	source   string
	logger   *zap.Logger
}

// NewProducer creates a synchronous Kafka producer for the auth event topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) (Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &kafkaProducer{
		producer: producer,
		topic:    topic,
		source:   "/auth-service",
		logger:   logger,
	}, nil
}

func (p *kafkaProducer) Publish(_ context.Context, eventType EventType, subject string, data interface{}) error {
	event := CloudEvent{
		SpecVersion:     "1.0",
		Type:            string(eventType),
		Source:          p.source,
		Subject:         subject,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.Error(err), zap.String("event_type", string(eventType)))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		zap.String("event_type", string(eventType)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.producer.Close()
}

// NoopProducer discards events. Used when Kafka is disabled and in tests.
type NoopProducer struct{}

func (NoopProducer) Publish(context.Context, EventType, string, interface{}) error { return nil }
func (NoopProducer) Close() error                                                  { return nil }
