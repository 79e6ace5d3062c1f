package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ezenity/ezenity-api/internal/domain"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "k", 2, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("hit %d: expected allow, got %+v %v", i, d, err)
		}
	}
	d, _ := l.Allow(ctx, "k", 2, time.Minute)
	if d.Allowed || d.RetryAfter != time.Minute {
		t.Fatalf("expected deny with full retry, got %+v", d)
	}
	if d, _ := l.Allow(ctx, "other", 2, time.Minute); !d.Allowed {
		t.Fatal("keys must not share windows")
	}

	now = now.Add(time.Minute)
	if d, _ := l.Allow(ctx, "k", 2, time.Minute); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("expected new window, got %+v", d)
	}
}

func TestRateLimiterMiddlewareDeniesWithHeaders(t *testing.T) {
	rl := NewLocalRateLimiter(1, time.Minute, "auth")
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/authenticate", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	if rr := serve(); rr.Code != http.StatusNoContent {
		t.Fatalf("first request expected 204, got %d", rr.Code)
	}
	rr := serve()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("expected rate limit headers, got %v", rr.Header())
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestRateLimiterFailureModes(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	for mode, want := range map[FailureMode]int{FailOpen: http.StatusNoContent, FailClosed: http.StatusTooManyRequests} {
		rl := NewRateLimiter(brokenLimiter{}, 5, time.Minute, mode, "api", nil)
		rr := httptest.NewRecorder()
		rl.Middleware()(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", mode, want, rr.Code)
		}
	}
}

func TestAccountOrIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4000"
	if got := AccountOrIPKey(req); got != "192.168.1.9" {
		t.Fatalf("expected ip key, got %q", got)
	}
	req = req.WithContext(WithAccount(req.Context(), &domain.Account{ID: 12}))
	if got := AccountOrIPKey(req); got != "acct:12" {
		t.Fatalf("expected account key, got %q", got)
	}
	if rateLimitKeyType("acct:12") != "account" || rateLimitKeyType("1.2.3.4") != "ip" {
		t.Fatal("unexpected key type classification")
	}
}

func TestRedisLimiterSharesWindow(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLimiter(client, "rl_test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "auth:1.2.3.4", 3, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("hit %d: expected allow, got %+v %v", i, d, err)
		}
	}
	d, err := l.Allow(ctx, "auth:1.2.3.4", 3, time.Minute)
	if err != nil || d.Allowed || d.RetryAfter <= 0 {
		t.Fatalf("expected deny, got %+v %v", d, err)
	}

	server.FastForward(time.Minute + time.Second)
	if d, err := l.Allow(ctx, "auth:1.2.3.4", 3, time.Minute); err != nil || !d.Allowed || d.Remaining != 2 {
		t.Fatalf("expected fresh window, got %+v %v", d, err)
	}
}
