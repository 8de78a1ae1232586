package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChecker sends PING to Redis.
type RedisChecker struct {
	client  redis.Cmdable
	timeout time.Duration
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.Cmdable) *RedisChecker {
	return &RedisChecker{client: client, timeout: DefaultTimeout}
}

// HealthCheck performs a health check on Redis by sending a PING command.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}
