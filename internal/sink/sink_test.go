package sink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/models"
)

func testSnapshot(id string) models.Snapshot {
	return models.Snapshot{
		Reading:   models.Reading{ReadingID: id, Stress: "High", BPM: 130, LastUpdated: 10},
		ServerNow: 11,
	}
}

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

type fakePublisher struct {
	mu       sync.Mutex
	topic    string
	retained bool
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.retained = retained
	p.payloads = append(p.payloads, payload.([]byte))
	return newDoneToken(p.err)
}

func TestMQTTSink_PublishesRetained(t *testing.T) {
	pub := &fakePublisher{}
	s := &MQTTSink{client: pub, topic: "synheart/stress/readings", qos: 1}

	err := s.Publish(context.Background(), []byte(`{"stress":"High"}`), testSnapshot("a"))
	require.NoError(t, err)

	assert.Equal(t, "synheart/stress/readings", pub.topic)
	assert.True(t, pub.retained)
	require.Len(t, pub.payloads, 1)
	assert.JSONEq(t, `{"stress":"High"}`, string(pub.payloads[0]))
	assert.NoError(t, s.Close())
}

func TestMQTTSink_PropagatesTokenError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	s := &MQTTSink{client: pub, topic: "t"}

	err := s.Publish(context.Background(), []byte("{}"), testSnapshot("a"))
	assert.EqualError(t, err, "not connected")
}

func TestRedisSink_PublishAndStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	s := NewRedisSink(client, "synheart:stress:readings", "synheart:stress:latest")
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, "synheart:stress:readings")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	payload := []byte(`{"stress":"High","bpm":130}`)
	require.NoError(t, s.Publish(ctx, payload, testSnapshot("a")))

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), msg.Payload)

	stored, err := mr.Get("synheart:stress:latest")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), stored)
}

func TestRedisSink_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	s := NewRedisSink(client, "c", "")
	mr.Close()

	err := s.Publish(context.Background(), []byte("{}"), testSnapshot("a"))
	assert.Error(t, err)
}

type fakeKafkaWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_KeysAndHeaders(t *testing.T) {
	w := &fakeKafkaWriter{}
	s := newKafkaSink(w, "device-1")

	require.NoError(t, s.Publish(context.Background(), []byte(`{"stress":"High"}`), testSnapshot("r-1")))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "device-1", string(msg.Key))
	assert.JSONEq(t, `{"stress":"High"}`, string(msg.Value))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "High", headers["stress"])
	assert.Equal(t, "r-1", headers["reading_id"])

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaSink_Validation(t *testing.T) {
	_, err := NewKafkaSink(config.KafkaConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewKafkaSink(config.KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	s, err := NewKafkaSink(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "kafka", s.Name())
	assert.NoError(t, s.Close())
}

type recordingSink struct {
	name     string
	mu       sync.Mutex
	payloads []string
	err      error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, payload []byte, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, string(payload))
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func TestForwarder_FailingSinkDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	good := &recordingSink{name: "good"}
	f := NewForwarder(nil, bad, good)

	snaps := make(chan models.Snapshot, 3)
	snaps <- testSnapshot("1")
	snaps <- testSnapshot("2")
	snaps <- testSnapshot("3")
	close(snaps)

	require.NoError(t, f.Run(context.Background(), snaps))

	assert.Equal(t, 3, bad.count())
	assert.Equal(t, 3, good.count())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(good.payloads[0]), &decoded))
	assert.Equal(t, "High", decoded["stress"])
	assert.Equal(t, float64(11), decoded["server_now"])
	assert.NoError(t, f.Close())
}

func TestForwarder_StopsOnCancel(t *testing.T) {
	f := NewForwarder(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Run(ctx, make(chan models.Snapshot))
	assert.ErrorIs(t, err, context.Canceled)
}
