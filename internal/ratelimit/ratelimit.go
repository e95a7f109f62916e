// Package ratelimit throttles repeated verification starts per member.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter decides whether key may act again.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Time, error)
}

// RedisLimiter implements sliding window rate limiting on a sorted set.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisLimiter allows limit actions per window for each key.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger.With().Str("component", "ratelimit").Logger(),
		now:    time.Now,
	}
}

// rateKey returns the sorted set key for a member.
func rateKey(key string) string {
	return fmt.Sprintf("ratelimit:verify:%s", key)
}

// Allow reports whether key is within the limit and, if so, records the
// attempt. Rejected attempts are not recorded, so retrying does not extend
// the lockout. The returned time is when the oldest attempt leaves the window.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Time, error) {
	now := rl.now()
	windowStart := now.Add(-rl.window)
	k := rateKey(key)

	pipe := rl.client.TxPipeline()

	// Remove old entries outside window
	pipe.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("%d", windowStart.UnixMilli()))

	// Count current entries and find the oldest
	countCmd := pipe.ZCard(ctx, k)
	oldestCmd := pipe.ZRangeWithScores(ctx, k, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, now, err
	}

	if count := countCmd.Val(); count >= int64(rl.limit) {
		retryAt := now.Add(rl.window)
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			retryAt = time.UnixMilli(int64(oldest[0].Score)).Add(rl.window)
		}
		rl.logger.Warn().
			Str("event", "rate_limit_exceeded").
			Str("key", key).
			Int64("attempts", count).
			Time("retry_at", retryAt).
			Msg("verification rate limit exceeded")
		return false, retryAt, nil
	}

	pipe = rl.client.TxPipeline()
	// Add current attempt with unique member
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, k, rl.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, now, err
	}
	return true, now, nil
}
