package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synheart/synheart-stress/internal/models"
)

type doneToken struct {
	done chan struct{}
	err  error
}

func newDoneToken(err error) *doneToken {
	t := &doneToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeBroker struct {
	mu           sync.Mutex
	handler      mqtt.MessageHandler
	subscribed   chan struct{}
	unsubscribed []string
	subErr       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subscribed: make(chan struct{})}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.handler = cb
	b.mu.Unlock()
	if b.subErr == nil {
		close(b.subscribed)
	}
	return newDoneToken(b.subErr)
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	b.unsubscribed = append(b.unsubscribed, topics...)
	b.mu.Unlock()
	return newDoneToken(nil)
}

func (b *fakeBroker) deliver(topic, payload string) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	h(nil, fakeMessage{topic: topic, payload: []byte(payload)})
}

type recordingIngester struct {
	mu      sync.Mutex
	samples []models.RawSample
	err     error
}

func (r *recordingIngester) Ingest(ctx context.Context, s models.RawSample) (models.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return models.Reading{Stress: "Normal", BPM: s.BPM}, r.err
}

func TestMQTTIngestor_DeliversSamples(t *testing.T) {
	broker := newFakeBroker()
	ing := &recordingIngester{}
	i := newMQTTIngestor(broker, "synheart/stress/samples", 1, ing, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- i.Run(ctx) }()

	<-broker.subscribed
	broker.deliver("synheart/stress/samples", `{"bpm":75,"hrv":50}`)
	broker.deliver("synheart/stress/samples", `garbage`)

	cancel()
	require.NoError(t, <-done)

	require.Len(t, ing.samples, 2)
	assert.Equal(t, models.RawSample{BPM: 75, Respiration: 16, SpO2: 98, HRV: 50}, ing.samples[0])
	assert.Equal(t, models.DefaultSample(), ing.samples[1])
	assert.Equal(t, int64(2), i.Received())
	assert.Equal(t, int64(0), i.Failed())
	assert.Equal(t, []string{"synheart/stress/samples"}, broker.unsubscribed)
}

func TestMQTTIngestor_CountsFailures(t *testing.T) {
	broker := newFakeBroker()
	ing := &recordingIngester{err: errors.New("classifier unavailable")}
	i := newMQTTIngestor(broker, "s", 0, ing, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go i.Run(ctx)
	defer cancel()

	<-broker.subscribed
	broker.deliver("s", `{"bpm":75}`)

	assert.Equal(t, int64(1), i.Failed())
}

func TestMQTTIngestor_SubscribeError(t *testing.T) {
	broker := newFakeBroker()
	broker.subErr = errors.New("not authorized")
	i := newMQTTIngestor(broker, "s", 0, &recordingIngester{}, nil)

	err := i.Run(context.Background())
	assert.ErrorContains(t, err, "not authorized")
}
