package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw catalog responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client. Keys are namespaced with "booklog:".
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "booklog:"}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
