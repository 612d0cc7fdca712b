package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Cache stores JSON values under a key prefix with a TTL.
type Cache struct {
	redis  *RedisClient
	prefix string
	ttl    time.Duration
}

// NewCache creates a JSON cache on top of redis.
func NewCache(redis *RedisClient, prefix string, ttl time.Duration) *Cache {
	return &Cache{redis: redis, prefix: prefix, ttl: ttl}
}

// GetJSON decodes the cached value for key into v. It reports false on a
// miss, a disabled backend or an undecodable entry.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if c == nil {
		return false
	}
	val, err := c.redis.Get(ctx, c.prefix+key)
	if err != nil || val == "" {
		return false
	}
	return json.Unmarshal([]byte(val), v) == nil
}

// SetJSON stores v under key.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.prefix+key, string(data), c.ttl)
}
