package sink

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/models"
)

// NewRedisClient creates a client for the configured server.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisSink publishes snapshots on a pub/sub channel and, when Key is set,
// also stores the latest one under that key.
type RedisSink struct {
	client  *redis.Client
	channel string
	key     string
}

func NewRedisSink(client *redis.Client, channel, key string) *RedisSink {
	return &RedisSink{client: client, channel: channel, key: key}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, payload []byte, _ models.Snapshot) error {
	pipe := s.client.Pipeline()
	if s.channel != "" {
		pipe.Publish(ctx, s.channel, payload)
	}
	if s.key != "" {
		pipe.Set(ctx, s.key, payload, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
