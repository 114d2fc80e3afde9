// Package cache keeps ranked search results in two tiers: a bounded
// in-process LRU and, when configured, a shared Redis tier behind a circuit
// breaker. Keys include the checksum of the served index, so results computed
// against one index file are never returned for another.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/catalog/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/resilience"
)

const (
	keyPrefix   = "search:"
	breakerName = "redis-cache"
)

// Status reports which tier answered a lookup.
type Status string

const (
	StatusLocal Status = "local"
	StatusRedis Status = "redis"
	StatusMiss  Status = "miss"
)

// Stats is a snapshot of cache activity since startup.
type Stats struct {
	LocalHits    int64  `json:"local_hits"`
	RedisHits    int64  `json:"redis_hits"`
	Misses       int64  `json:"misses"`
	LocalEntries int    `json:"local_entries"`
	Redis        string `json:"redis"`
}

type entry struct {
	result  *executor.SearchResult
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

type QueryCache struct {
	local   *lru.Cache[string, entry]
	client  *pkgredis.Client
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	localHits atomic.Int64
	redisHits atomic.Int64
	misses    atomic.Int64
}

// New creates a cache. client and m may be nil: without a client only the
// local tier is used.
func New(client *pkgredis.Client, cfg config.CacheConfig, m *metrics.Metrics) (*QueryCache, error) {
	size := cfg.LocalSize
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}
	breakerCfg := resilience.CircuitBreakerConfig{IsFailure: countsAgainstRedis}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
		breakerCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &QueryCache{
		local:   local,
		client:  client,
		breaker: resilience.NewCircuitBreaker(breakerName, breakerCfg),
		ttl:     cfg.TTL,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}, nil
}

// GetOrCompute returns the cached result for plan against the index with the
// given checksum, or runs compute once for all concurrent callers and stores
// what it returns. Errors from compute are never cached.
//
// compute receives a context detached from any single caller's cancellation,
// so one client going away does not fail the others waiting on the same key.
// Each caller still stops waiting when its own ctx is done.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	checksum uint32,
	plan *parser.QueryPlan,
	limit int,
	compute func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, Status, error) {
	key := buildKey(checksum, plan, limit)
	if result, status, ok := c.lookup(ctx, key); ok {
		return result, status, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if result, _, ok := c.lookup(shared, key); ok {
			return result, nil
		}
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.store(shared, key, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, StatusMiss, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, StatusMiss, res.Err
		}
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		return res.Val.(*executor.SearchResult), StatusMiss, nil
	}
}

func (c *QueryCache) lookup(ctx context.Context, key string) (*executor.SearchResult, Status, bool) {
	now := time.Now()
	if e, ok := c.local.Get(key); ok {
		if !e.expired(now) {
			c.hit(StatusLocal)
			return e.result, StatusLocal, true
		}
		c.local.Remove(key)
	}
	if c.client == nil {
		return nil, StatusMiss, false
	}

	var result executor.SearchResult
	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		found, err = c.client.GetJSON(ctx, key, &result)
		return err
	})
	if err != nil {
		c.logRedisError("cache get failed", key, err)
		return nil, StatusMiss, false
	}
	if !found {
		return nil, StatusMiss, false
	}
	c.local.Add(key, entry{result: &result, expires: c.expiry(now)})
	c.hit(StatusRedis)
	return &result, StatusRedis, true
}

func (c *QueryCache) store(ctx context.Context, key string, result *executor.SearchResult) {
	c.local.Add(key, entry{result: result, expires: c.expiry(time.Now())})
	if c.client == nil {
		return
	}
	err := c.breaker.Execute(func() error {
		return c.client.SetJSON(ctx, key, result, c.ttl)
	})
	if err != nil {
		c.logRedisError("cache set failed", key, err)
	}
}

// Invalidate drops every cached result from both tiers and returns the
// number of Redis keys removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	c.local.Purge()
	if c.client == nil {
		c.logger.Info("cache invalidated", "tier", "local")
		return 0, nil
	}
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.client.FlushByPrefix(ctx, keyPrefix)
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "redis_keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{
		LocalHits:    c.localHits.Load(),
		RedisHits:    c.redisHits.Load(),
		Misses:       c.misses.Load(),
		LocalEntries: c.local.Len(),
		Redis:        "disabled",
	}
	if c.client != nil {
		s.Redis = c.breaker.GetState().String()
	}
	return s
}

func (c *QueryCache) hit(tier Status) {
	if tier == StatusLocal {
		c.localHits.Add(1)
	} else {
		c.redisHits.Add(1)
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(string(tier)).Inc()
	}
}

func (c *QueryCache) expiry(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

// Callers giving up on a request say nothing about Redis health.
func countsAgainstRedis(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (c *QueryCache) logRedisError(msg, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Warn(msg, "key", key, "error", err)
}

func buildKey(checksum uint32, plan *parser.QueryPlan, limit int) string {
	raw := fmt.Sprintf("%08x|%s|limit=%d", checksum, plan.Key(), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
