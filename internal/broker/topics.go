package broker

import (
	"context"
	"log"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"droneMissionControl/internal/config"
)

// EnsureTopics creates the telemetry, command, and DLQ topics on the
// cluster controller if they do not exist yet. Partition counts matter:
// the vehicle id partition key only preserves per-vehicle ordering within
// a topic's existing partitions.
func EnsureTopics(ctx context.Context, cfg *config.Config, partitions, replicationFactor int) error {
	bootstrap := cfg.Kafka.Brokers[0]

	conn, err := kafka.DialContext(ctx, "tcp", bootstrap)
	if err != nil {
		return err
	}
	defer conn.Close()

	exists := func(topic string) bool {
		parts, err := conn.ReadPartitions(topic)
		return err == nil && len(parts) > 0
	}

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return err
	}
	defer ctrlConn.Close()

	for _, topic := range []string{cfg.Kafka.TelemetryTopic, cfg.Kafka.CommandTopic, cfg.Kafka.DLQTopic} {
		if exists(topic) {
			log.Printf("kafka topic %s already exists, skipping", topic)
			continue
		}
		log.Printf("kafka creating topic %s (partitions=%d rf=%d)", topic, partitions, replicationFactor)
		if err := ctrlConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		}); err != nil {
			return err
		}
	}
	return nil
}
