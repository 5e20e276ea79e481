package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/models"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes one message per snapshot, keyed by device so a consumer
// sees one device's readings in order.
type KafkaSink struct {
	writer kafkaMessageWriter
	key    []byte
}

// NewKafkaSink creates a sink backed by a kafka.Writer.
func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaSink(w, cfg.Key), nil
}

func newKafkaSink(w kafkaMessageWriter, key string) *KafkaSink {
	return &KafkaSink{writer: w, key: []byte(key)}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, payload []byte, snap models.Snapshot) error {
	msg := kafka.Message{
		Key:   s.key,
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "stress", Value: []byte(snap.Stress)},
		},
	}
	if snap.ReadingID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "reading_id", Value: []byte(snap.ReadingID)})
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
