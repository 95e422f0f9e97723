// Package broker is the Kafka client for the mission-control topics: a
// synchronous producer for outbound execution commands, a producer for the
// telemetry dead-letter queue, and a consumer-group reader for inbound
// telemetry with manual commits (commit = acknowledgment).
package broker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"droneMissionControl/internal/config"
)

type KafkaClient struct {
	commands  *kafka.Writer
	dlq       *kafka.Writer
	telemetry *kafka.Reader
}

func NewKafkaClient(cfg *config.Config) *KafkaClient {
	balancer := &kafka.Hash{}

	// Command publishes are synchronous with full acks: the dispatcher
	// must not report success before the bus has persisted the message.
	commands := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.CommandTopic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: time.Millisecond,
	}

	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.DLQTopic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: time.Millisecond,
	}

	telemetry := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topic:           cfg.Kafka.TelemetryTopic,
		StartOffset:     kafka.FirstOffset,
		MinBytes:        1,
		MaxBytes:        10e6,
		ReadLagInterval: -1,
	})

	return &KafkaClient{commands: commands, dlq: dlq, telemetry: telemetry}
}

// Publish sends one message to the command topic, keyed by vehicle id.
// It returns only after the bus acknowledges persistence.
func (kc *KafkaClient) Publish(ctx context.Context, key, value []byte) error {
	return kc.commands.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// PublishDLQ sends one message to the dead-letter topic.
func (kc *KafkaClient) PublishDLQ(ctx context.Context, key, value []byte) error {
	return kc.dlq.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// Fetch reads the next telemetry message without committing it.
func (kc *KafkaClient) Fetch(ctx context.Context) (kafka.Message, error) {
	return kc.telemetry.FetchMessage(ctx)
}

// Commit acknowledges messages; for Kafka this advances the consumer
// group offset past them.
func (kc *KafkaClient) Commit(ctx context.Context, msgs ...kafka.Message) error {
	return kc.telemetry.CommitMessages(ctx, msgs...)
}

func (kc *KafkaClient) Close() {
	_ = kc.commands.Close()
	_ = kc.dlq.Close()
	_ = kc.telemetry.Close()
}
