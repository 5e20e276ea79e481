// Package ingest feeds raw samples from a message broker into the pipeline,
// for devices that publish instead of POSTing to /predict.
package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/models"
)

// Ingester processes one raw sample.
type Ingester interface {
	Ingest(ctx context.Context, sample models.RawSample) (models.Reading, error)
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// MQTTIngestor subscribes to a samples topic. Payloads use the /predict body
// format; malformed payloads degrade to defaults exactly as over HTTP.
type MQTTIngestor struct {
	client   subscriber
	topic    string
	qos      byte
	ingester Ingester
	logger   *zap.Logger

	received atomic.Int64
	failed   atomic.Int64
}

func NewMQTTIngestor(client mqtt.Client, topic string, qos byte, ingester Ingester, logger *zap.Logger) *MQTTIngestor {
	return newMQTTIngestor(client, topic, qos, ingester, logger)
}

func newMQTTIngestor(client subscriber, topic string, qos byte, ingester Ingester, logger *zap.Logger) *MQTTIngestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTIngestor{
		client:   client,
		topic:    topic,
		qos:      qos,
		ingester: ingester,
		logger:   logger,
	}
}

// Run subscribes and blocks until ctx is cancelled.
func (i *MQTTIngestor) Run(ctx context.Context) error {
	token := i.client.Subscribe(i.topic, i.qos, func(_ mqtt.Client, msg mqtt.Message) {
		i.handle(ctx, msg)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt subscribe to %s: timeout", i.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe to %s: %w", i.topic, err)
	}
	i.logger.Info("subscribed to samples", zap.String("topic", i.topic))

	<-ctx.Done()
	i.client.Unsubscribe(i.topic).WaitTimeout(time.Second)
	return nil
}

func (i *MQTTIngestor) handle(ctx context.Context, msg mqtt.Message) {
	i.received.Add(1)

	sample, err := models.ParseSample(msg.Payload())
	if err != nil {
		i.logger.Debug("malformed sample payload, using defaults",
			zap.String("topic", msg.Topic()), zap.Error(err))
	}

	reading, err := i.ingester.Ingest(ctx, sample)
	if err != nil {
		i.failed.Add(1)
		i.logger.Error("ingest failed", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	i.logger.Debug("sample ingested",
		zap.String("topic", msg.Topic()),
		zap.String("stress", reading.Stress),
		zap.Int("bpm", reading.BPM))
}

// Received returns the number of messages handled.
func (i *MQTTIngestor) Received() int64 { return i.received.Load() }

// Failed returns the number of messages whose ingestion returned an error.
func (i *MQTTIngestor) Failed() int64 { return i.failed.Load() }
