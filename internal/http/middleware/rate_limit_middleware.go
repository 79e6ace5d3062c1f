package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ezenity/ezenity-api/internal/http/response"
	"github.com/ezenity/ezenity-api/internal/observability"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	keyFunc func(r *http.Request) string
}

func NewRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string, keyFunc func(r *http.Request) string) *RateLimiter {
	if limiter == nil {
		limiter = NewMemoryLimiter(nil)
	}
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	return &RateLimiter{limiter: limiter, limit: limit, window: window, mode: mode, scope: scope, keyFunc: keyFunc}
}

// NewLocalRateLimiter limits per client IP in process memory.
func NewLocalRateLimiter(limit int, window time.Duration, scope string) *RateLimiter {
	return NewRateLimiter(NewMemoryLimiter(nil), limit, window, FailClosed, scope, ClientIPKey)
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			if key == "" {
				key = ClientIPKey(r)
			}
			keyType := rateLimitKeyType(key)
			decision, err := rl.limiter.Allow(r.Context(), rl.scope+":"+key, rl.limit, rl.window)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error", string(rl.mode), keyType)
				if rl.mode == FailOpen {
					slog.WarnContext(r.Context(), "rate limiter backend unavailable, allowing request", "scope", rl.scope, "error", err)
					next.ServeHTTP(w, r)
					return
				}
				rl.deny(w, r, rl.window, time.Now().Add(rl.window), "backend")
				return
			}
			writeRateLimitHeaders(w.Header(), rl.limit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny", string(rl.mode), keyType)
				rl.deny(w, r, decision.RetryAfter, decision.ResetAt, "window")
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow", string(rl.mode), keyType)
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) deny(w http.ResponseWriter, r *http.Request, retryAfter time.Duration, resetAt time.Time, reason string) {
	writeRateLimitHeaders(w.Header(), rl.limit, 0, resetAt)
	w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
	observability.RecordRateLimitRetryAfter(r.Context(), rl.scope, reason, retryAfter)
	response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
}

// AccountOrIPKey keys authenticated callers by account and everyone else by
// client IP. It must run after Identity.
func AccountOrIPKey(r *http.Request) string {
	if account, ok := AccountFromContext(r.Context()); ok {
		return "acct:" + strconv.FormatUint(uint64(account.ID), 10)
	}
	return ClientIPKey(r)
}

type memoryWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed window counter local to one process.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*memoryWindow
	sweepAt time.Time
}

func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, windows: make(map[string]*memoryWindow)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, w := range l.windows {
			if !now.Before(w.resetAt) {
				delete(l.windows, k)
			}
		}
		l.sweepAt = now.Add(window)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	if w.count >= limit {
		return Decision{Allowed: false, RetryAfter: w.resetAt.Sub(now), ResetAt: w.resetAt}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: limit - w.count, ResetAt: w.resetAt}, nil
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func writeRateLimitHeaders(h http.Header, limit int, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func rateLimitKeyType(key string) string {
	if strings.HasPrefix(key, "acct:") {
		return "account"
	}
	return "ip"
}
