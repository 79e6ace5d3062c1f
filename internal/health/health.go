// Package health runs readiness checks against the service dependencies.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// Runner runs every checker concurrently under a shared timeout. A
// positive cacheTTL reuses the previous result so load balancer polling
// does not hammer the database.
type Runner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker

	mu       sync.Mutex
	cachedAt time.Time
	cached   []CheckResult
}

func NewRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *Runner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Runner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers}
}

func (p *Runner) Ready(ctx context.Context) (bool, []CheckResult) {
	results := p.run(ctx)
	for _, r := range results {
		if !r.Healthy {
			return false, results
		}
	}
	return true, results
}

func (p *Runner) run(ctx context.Context) []CheckResult {
	p.mu.Lock()
	if p.cacheTTL > 0 && p.cached != nil && time.Since(p.cachedAt) < p.cacheTTL {
		out := append([]CheckResult(nil), p.cached...)
		p.mu.Unlock()
		return out
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	results := make([]CheckResult, len(p.checkers))
	var g errgroup.Group
	for i, c := range p.checkers {
		g.Go(func() error {
			start := time.Now()
			res := c.Check(ctx)
			res.DurationMS = time.Since(start).Milliseconds()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.cached = results
	p.cachedAt = time.Now()
	p.mu.Unlock()
	return results
}

type DBChecker struct{ db *gorm.DB }

func NewDBChecker(db *gorm.DB) DBChecker { return DBChecker{db: db} }

func (c DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "database"}
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}

type RedisChecker struct{ client redis.UniversalClient }

func NewRedisChecker(client redis.UniversalClient) RedisChecker { return RedisChecker{client: client} }

func (c RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis"}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}
