package service

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newRedisCacheForTest returns a negative cache on a private miniredis. The
// server is returned so tests can fast-forward key expiry.
func newRedisCacheForTest(t *testing.T, prefix string) (*RedisNegativeLookupCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisNegativeLookupCache(client, prefix), mr
}
