// Package storage provides Redis persistence for Showdex.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient wraps go-redis. Without REDIS_URL it runs disabled and every
// call is a no-op, so callers fall back to memory.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	logger  *zap.Logger
}

// NewRedisClient connects to redisURL. Any failure yields a disabled client.
func NewRedisClient(ctx context.Context, redisURL string, logger *zap.Logger) *RedisClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("redis")

	if redisURL == "" {
		logger.Info("Redis not configured (REDIS_URL missing), using memory only")
		return &RedisClient{logger: logger}
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("Failed to parse REDIS_URL", zap.Error(err))
		return &RedisClient{logger: logger}
	}

	opt.PoolSize = 5
	opt.MinIdleConns = 1
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
		_ = client.Close()
		return &RedisClient{logger: logger}
	}

	logger.Info("Redis connected")
	return &RedisClient{client: client, enabled: true, logger: logger}
}

// Enabled reports whether Redis is reachable.
func (r *RedisClient) Enabled() bool { return r != nil && r.enabled }

// Get retrieves a value. A missing key yields "" and no error.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if !r.Enabled() {
		return "", nil
	}
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// Set stores a value; ttl 0 means no expiration.
func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key.
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Del(ctx, key).Err()
}

// Ping checks the connection, for health reporting.
func (r *RedisClient) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisClient) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
