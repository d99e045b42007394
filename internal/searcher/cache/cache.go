// Package cache memoises search results in Redis. Keys include the index
// fingerprint and count mode, so a rebuilt index or a config change never
// reads stale entries. Redis trouble degrades to uncached searches.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepstha184/IR-assignment123/internal/searcher/executor"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/parser"
	"github.com/sandeepstha184/IR-assignment123/pkg/metrics"
	pkgredis "github.com/sandeepstha184/IR-assignment123/pkg/redis"
	"github.com/sandeepstha184/IR-assignment123/pkg/resilience"
)

const keyPrefix = "pubsearch:"

// Backend is the subset of pkg/redis.Client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	scope   string
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	errors  atomic.Int64
}

// New returns a cache for results computed against the index identified by
// fingerprint under the given count mode. m may be nil.
func New(backend Backend, ttl time.Duration, fingerprint, countMode string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		scope:   fingerprint + "|" + countMode,
		breaker: resilience.NewBreaker("redis-cache", resilience.BreakerConfig{
			Threshold: 5,
			Cooldown:  30 * time.Second,
			// A caller that hangs up mid-lookup says nothing about Redis.
			IsFailure: func(err error) bool {
				return err != nil && !errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, _, to resilience.State) {
				if m != nil {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, q *parser.Query, limit int) (*executor.SearchResult, bool) {
	key := c.buildKey(q, limit)
	var data []byte
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	result.Query = q.Raw
	c.hit()
	c.logger.Debug("cache hit", "query", q.Raw, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, q *parser.Query, limit int, result *executor.SearchResult) {
	key := c.buildKey(q, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or computes, stores and returns a
// fresh one. Concurrent misses for the same key share one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q *parser.Query,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, q, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(q, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached search result, for any index.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

type Stats struct {
	Hits    int64                      `json:"hits"`
	Misses  int64                      `json:"misses"`
	Errors  int64                      `json:"errors"`
	Total   int64                      `json:"total"`
	HitRate string                     `json:"hit_rate"`
	Breaker resilience.BreakerSnapshot `json:"circuit_breaker"`
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Errors:  c.errors.Load(),
		Total:   total,
		HitRate: fmt.Sprintf("%.1f%%", rate),
		Breaker: c.breaker.Snapshot(),
	}
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the keywords as typed: their order decides ties and their
// casing is echoed back in results.
func (c *QueryCache) buildKey(q *parser.Query, limit int) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", c.scope, strings.Join(q.Keywords, " "), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
