package service

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryNegativeLookupCacheRememberForget(t *testing.T) {
	cache := NewInMemoryNegativeLookupCache(nil)
	ctx := context.Background()

	if err := cache.Remember(ctx, NamespaceMissingAccount, "42", time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := cache.Remember(ctx, NamespaceMissingAccount, "43", time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	hit, err := cache.Has(ctx, NamespaceMissingAccount, "42")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}

	if err := cache.Forget(ctx, NamespaceMissingAccount, "42"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if hit, _ := cache.Has(ctx, NamespaceMissingAccount, "42"); hit {
		t.Fatal("expected miss after forget")
	}
	if hit, _ := cache.Has(ctx, NamespaceMissingAccount, "43"); !hit {
		t.Fatal("expected unrelated key to survive forget")
	}
}

func TestInMemoryNegativeLookupCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewInMemoryNegativeLookupCache(func() time.Time { return now })
	ctx := context.Background()

	if err := cache.Remember(ctx, NamespaceMissingAccount, "77", time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	now = now.Add(time.Minute)
	if hit, _ := cache.Has(ctx, NamespaceMissingAccount, "77"); hit {
		t.Fatal("expected entry to expire at its deadline")
	}
	if err := cache.Remember(ctx, NamespaceMissingAccount, "78", 0); err != nil {
		t.Fatalf("remember with zero ttl: %v", err)
	}
	if hit, _ := cache.Has(ctx, NamespaceMissingAccount, "78"); hit {
		t.Fatal("zero ttl must not cache")
	}
}

func TestNoopNegativeLookupCacheAlwaysMisses(t *testing.T) {
	cache := NewNoopNegativeLookupCache()
	ctx := context.Background()
	if err := cache.Remember(ctx, NamespaceMissingAccount, "404", time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if hit, err := cache.Has(ctx, NamespaceMissingAccount, "404"); err != nil || hit {
		t.Fatalf("expected noop miss, got hit=%v err=%v", hit, err)
	}
}

func TestCacheKeyHelpers(t *testing.T) {
	if got := normalizeToken("  Account.Not Found "); got != "account.not_found" {
		t.Fatalf("unexpected normalized namespace %q", got)
	}
	if got := normalizeToken(""); got != "_" {
		t.Fatalf("unexpected empty normalization %q", got)
	}
	if hashToken("a") == hashToken("b") || len(hashToken("a")) != 32 {
		t.Fatal("expected distinct fixed-width hashes")
	}
}
