package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles password logins per client key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// redisCounter is the part of *redis.Client the limiter needs.
type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLoginLimiter counts attempts in a fixed window per key using INCR
// and EXPIRE, so every server instance shares the same counters.
type RedisLoginLimiter struct {
	client redisCounter
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLoginLimiter(client redisCounter, limit int, window time.Duration) *RedisLoginLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLoginLimiter{client: client, limit: limit, window: window, prefix: "mediapub:login:"}
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.limit <= 0 {
		return true, 0, nil
	}
	if key == "" {
		key = "unknown"
	}
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis expire: %w", err)
		}
	}
	if count <= int64(l.limit) {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 {
		// The key has no expiry, e.g. the first EXPIRE was lost. Without one
		// the counter would never reset.
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis expire: %w", err)
		}
		return false, l.window, nil
	}
	if ttl == 0 {
		return false, l.window, nil
	}
	return false, ttl, nil
}

// allowAll is used when no Redis address is configured.
type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }
