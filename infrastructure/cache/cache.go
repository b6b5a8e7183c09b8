package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"publisher/infrastructure/logger"
)

// NewCache connects a redis client; callers tolerate a nil client and fall
// back to the in-memory store.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable")
		return nil, err
	}
	return client, nil
}

// Store is the atomic counter/value surface the rate limiter and circuit
// breaker run on. Correctness relies on the backing store's atomic
// increment, not application-level locks.
type Store interface {
	// IncrBy atomically increments key by n. The ttl applies only when the
	// increment creates the key.
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (value int64, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, keys ...string) error
}
