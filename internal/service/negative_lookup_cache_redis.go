package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNegativeLookupCache shares negative lookups across API replicas.
// Entries are plain keys that expire on their own TTL.
type RedisNegativeLookupCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNegativeLookupCache(client redis.UniversalClient, prefix string) *RedisNegativeLookupCache {
	if prefix == "" {
		prefix = "ezenity:negative_lookup"
	}
	return &RedisNegativeLookupCache{client: client, prefix: prefix}
}

func (c *RedisNegativeLookupCache) Has(ctx context.Context, namespace, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.dataKey(namespace, key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisNegativeLookupCache) Remember(ctx context.Context, namespace, key string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.dataKey(namespace, key), "1", ttl).Err()
}

func (c *RedisNegativeLookupCache) Forget(ctx context.Context, namespace, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.dataKey(namespace, key)).Err()
}

func (c *RedisNegativeLookupCache) dataKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, normalizeToken(namespace), hashToken(key))
}
