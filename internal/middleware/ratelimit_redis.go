package middleware

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, allowing
// rate limit state to be shared across multiple API instances.
// It uses a fixed window counter (INCR + EXPIRE).
//
// The store fails open: if Redis is unreachable, requests are allowed so
// an outage of the limiter backend never takes the API down with it.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// SetMetrics attaches middleware metrics for counting fail-open events.
func (s *RedisRateLimitStore) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on Redis errors
		if s.metrics != nil {
			s.metrics.IncRateLimitRedisErrors()
		}
		return true, config.RequestsPerWindow, 0
	}

	count := int(incr.Val())
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}

	// Rate limited; derive retry-after from the key's TTL
	retryAfter := int(config.WindowDuration.Seconds())
	if ttl, err := s.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = int(ttl.Seconds())
	}
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}
