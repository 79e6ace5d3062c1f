package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments below resolve lazily against the global meter provider so they
// work before InitMetrics runs and inside tests.

type lazyCounter struct {
	once    sync.Once
	name    string
	counter metric.Int64Counter
}

func (c *lazyCounter) add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.once.Do(func() {
		counter, err := otel.Meter(meterName).Int64Counter(c.name)
		if err == nil {
			c.counter = counter
		}
	})
	if c.counter == nil {
		return
	}
	c.counter.Add(ctx, n, metric.WithAttributes(attrs...))
}

var (
	repositoryOps       = &lazyCounter{name: "repository.operations"}
	tokenValidations    = &lazyCounter{name: "auth.access_token.validations"}
	rateLimitDecisions  = &lazyCounter{name: "http.rate_limit.decisions"}
	negativeCacheEvents = &lazyCounter{name: "cache.negative_lookup.events"}
	mailDispatches      = &lazyCounter{name: "mail.dispatches"}
	tokenSweeps         = &lazyCounter{name: "auth.refresh_token.swept"}

	retryAfterOnce sync.Once
	retryAfterHist metric.Float64Histogram
)

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	repositoryOps.add(ctx, 1,
		attribute.String("repository", repo),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	tokenValidations.add(ctx, 1,
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	)
}

func RecordRateLimitDecision(ctx context.Context, scope, decision, mode, keyType string) {
	rateLimitDecisions.add(ctx, 1,
		attribute.String("scope", scope),
		attribute.String("decision", decision),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	)
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, d time.Duration) {
	retryAfterOnce.Do(func() {
		hist, err := otel.Meter(meterName).Float64Histogram("http.rate_limit.retry_after", metric.WithUnit("s"))
		if err == nil {
			retryAfterHist = hist
		}
	})
	if retryAfterHist == nil {
		return
	}
	retryAfterHist.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("reason", reason),
	))
}

func RecordNegativeLookupCacheEvent(ctx context.Context, namespace, outcome string) {
	negativeCacheEvents.add(ctx, 1,
		attribute.String("namespace", namespace),
		attribute.String("outcome", outcome),
	)
}

func RecordMailDispatch(ctx context.Context, template, status string) {
	mailDispatches.add(ctx, 1,
		attribute.String("template", template),
		attribute.String("status", status),
	)
}

func RecordRefreshTokenSweep(ctx context.Context, removed int64) {
	tokenSweeps.add(ctx, removed)
}
