package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/metrics"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

// RedisStore keeps the document under a single key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the connection for the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Backend returns "redis".
func (s *RedisStore) Backend() string { return "redis" }

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// configKey returns the key holding a named document.
func configKey(name string) string {
	return fmt.Sprintf("nezuko:config:%s", name)
}

// Save overwrites the document.
func (s *RedisStore) Save(ctx context.Context, rec *models.ConfigRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RedisLatency.Observe(time.Since(start).Seconds()) }()

	return s.client.Set(ctx, configKey(documentName), data, 0).Err()
}

// Load returns the document or nil when the key does not exist.
func (s *RedisStore) Load(ctx context.Context) (*models.ConfigRecord, error) {
	start := time.Now()
	data, err := s.client.Get(ctx, configKey(documentName)).Bytes()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord(data)
}
