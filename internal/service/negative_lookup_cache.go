package service

import (
	"context"
	"sync"
	"time"
)

// Namespaces used by the negative lookup caches.
const (
	NamespaceMissingAccount = "account.not_found"
)

// NegativeLookupCache remembers keys that recently resolved to nothing so
// repeated lookups for them can skip the database.
type NegativeLookupCache interface {
	Has(ctx context.Context, namespace, key string) (bool, error)
	Remember(ctx context.Context, namespace, key string, ttl time.Duration) error
	Forget(ctx context.Context, namespace, key string) error
}

type NoopNegativeLookupCache struct{}

func NewNoopNegativeLookupCache() *NoopNegativeLookupCache { return &NoopNegativeLookupCache{} }

func (NoopNegativeLookupCache) Has(context.Context, string, string) (bool, error) { return false, nil }

func (NoopNegativeLookupCache) Remember(context.Context, string, string, time.Duration) error {
	return nil
}

func (NoopNegativeLookupCache) Forget(context.Context, string, string) error { return nil }

type InMemoryNegativeLookupCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]map[string]time.Time
}

func NewInMemoryNegativeLookupCache(now func() time.Time) *InMemoryNegativeLookupCache {
	if now == nil {
		now = time.Now
	}
	return &InMemoryNegativeLookupCache{
		now:     now,
		entries: make(map[string]map[string]time.Time),
	}
}

func (c *InMemoryNegativeLookupCache) Has(_ context.Context, namespace, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns := c.entries[namespace]
	expires, ok := ns[key]
	if !ok {
		return false, nil
	}
	if !c.now().Before(expires) {
		c.dropLocked(namespace, key)
		return false, nil
	}
	return true, nil
}

func (c *InMemoryNegativeLookupCache) Remember(_ context.Context, namespace, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ns, ok := c.entries[namespace]
	if !ok {
		ns = make(map[string]time.Time)
		c.entries[namespace] = ns
	}
	ns[key] = c.now().Add(ttl)
	return nil
}

func (c *InMemoryNegativeLookupCache) Forget(_ context.Context, namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(namespace, key)
	return nil
}

func (c *InMemoryNegativeLookupCache) dropLocked(namespace, key string) {
	ns, ok := c.entries[namespace]
	if !ok {
		return
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(c.entries, namespace)
	}
}
