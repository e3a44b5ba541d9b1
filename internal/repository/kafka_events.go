package repository

import (
	"context"
	"time"

	"SignalBridge/internal/domain/models"
	"SignalBridge/internal/domain/repository"
	pkgkafka "SignalBridge/pkg/kafka"
)

// KafkaEventPublisher implements EventPublisher on the Kafka producer.
// Messages are keyed by connection id so per-connection order survives
// partitioning.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates the Kafka event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishCommandEvent(ctx context.Context, event string, cmd *models.Command) error {
	return p.producer.Publish(ctx, p.topic, []byte(cmd.ConnectionID), map[string]interface{}{
		"event":         event,
		"command_id":    cmd.ID,
		"connection_id": cmd.ConnectionID,
		"type":          cmd.Type,
		"symbol":        cmd.Symbol,
		"status":        cmd.Status,
		"ts":            time.Now().UTC().UnixMilli(),
	})
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaLogPublisher adapts the producer to the logger collector's
// Publisher interface so aggregated error logs ship to a logs topic.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaLogPublisher creates the adapter.
func NewKafkaLogPublisher(producer *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
