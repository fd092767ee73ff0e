package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prkovalenko/identity-link-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the public, unauthenticated endpoints (discovery and
// password setup) with a sliding window log in Redis. The engine itself is
// never throttled; this guards the handler surface only.
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow records the request against the key and reports whether it fits in
// the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", windowStart).Err(); err != nil {
		return false, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count rate limit window: %w", err)
	}
	if count >= int64(limit) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	err = r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	}).Err()
	if err != nil {
		return false, fmt.Errorf("failed to record rate limit entry: %w", err)
	}

	// Best effort; a missing expiry only leaves a small idle key behind.
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return true, nil
}

// Remaining reports how many requests the key has left in the window.
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	windowStart := strconv.FormatInt(time.Now().Add(-window).UnixNano(), 10)

	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", windowStart).Err(); err != nil {
		return 0, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
