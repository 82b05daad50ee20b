package diagcache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/db"
	"github.com/consilium-ai/consilium/internal/domain"
)

const keySuffix = "diag:"

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// entry is the serialized cache record. CreatedAt/TTLSec are authoritative for
// expiry: the backend TTL is set too, but a stale read must never be served
// even if the backend failed to expire the key.
type entry struct {
	Report    domain.AggregatedReport `json:"report"`
	CreatedAt int64                   `json:"created_at"`
	TTLSec    int64                   `json:"ttl_sec"`
	HitCount  int64                   `json:"hit_count"`
}

// Stats holds cache observability counters. Hits and misses accumulate
// monotonically until an explicit Reset.
type Stats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	EntryCount int    `json:"entry_count"`
}

// Cache is the content-addressed result cache. Every storage failure is
// absorbed: a failed read is a miss, a failed write is a no-op, so the service
// stays available when the backend is degraded.
type Cache struct {
	store      store
	prefix     string
	enabled    bool
	sweepEvery time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	// now is swappable for expiry tests.
	now func() time.Time

	mu        sync.Mutex
	hits      uint64
	misses    uint64
	lastSweep time.Time
}

// New creates a result cache over the given store.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	s store,
	keyPrefix string,
	enabled bool,
	sweepEvery time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		store:      s,
		prefix:     keyPrefix + keySuffix,
		enabled:    enabled,
		sweepEvery: sweepEvery,
		cacheTotal: cacheTotal,
		logger:     logger,
		now:        time.Now,
	}
}

// Lookup returns the cached report for the key. A non-expired hit increments
// the entry's hit count as an observable side effect. Expired entries and any
// backend error are treated as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (domain.AggregatedReport, bool) {
	if !c.enabled {
		return domain.AggregatedReport{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	storageKey := c.prefix + key

	data, err := c.store.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Cache read failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		return c.miss()
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Corrupt cache entry, dropping", zap.String("key", key), zap.Error(err))
		_ = c.store.Del(ctx, storageKey)
		return c.miss()
	}

	now := c.now()
	expiresAt := time.Unix(e.CreatedAt, 0).Add(time.Duration(e.TTLSec) * time.Second)
	if !now.Before(expiresAt) {
		if err := c.store.Del(ctx, storageKey); err != nil {
			c.logger.Warn("Failed to remove expired cache entry",
				zap.String("key", key), zap.Error(err))
		}
		return c.miss()
	}

	// Bump hit count, preserving the remaining lifetime.
	e.HitCount++
	if data, err := json.Marshal(e); err == nil {
		remaining := expiresAt.Sub(now)
		if err := c.store.SetWithTTL(ctx, storageKey, data, remaining); err != nil {
			c.logger.Warn("Failed to update cache hit count",
				zap.String("key", key), zap.Error(err))
		}
	}

	c.hits++
	c.incCache("hit")
	c.logger.Debug("Result cache hit",
		zap.String("key", key), zap.Int64("hit_count", e.HitCount))

	report := e.Report
	report.FromCache = true
	return report, true
}

// Store upserts a report under the key with the given TTL. Write failures are
// a logged no-op. May trigger an opportunistic sweep of expired entries.
func (c *Cache) Store(ctx context.Context, key string, report domain.AggregatedReport, ttl time.Duration) {
	if !c.enabled {
		return
	}

	e := entry{
		Report:    report,
		CreatedAt: c.now().Unix(),
		TTLSec:    int64(ttl.Seconds()),
	}
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("Failed to serialize cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.store.SetWithTTL(ctx, c.prefix+key, data, ttl); err != nil {
		c.logger.Warn("Failed to store cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	c.maybeSweep(ctx)
}

// Stats returns the accumulated hit/miss counters and the current entry count.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	s := Stats{Hits: c.hits, Misses: c.misses}
	c.mu.Unlock()

	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		return s, err
	}
	s.EntryCount = len(keys)
	return s, nil
}

// Reset removes all cached entries and zeroes the counters. Operator action.
func (c *Cache) Reset(ctx context.Context) (int, error) {
	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		if err := c.store.Del(ctx, keys...); err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	c.hits, c.misses = 0, 0
	c.mu.Unlock()

	return len(keys), nil
}

// maybeSweep removes entries past TTL, at most once per sweep interval.
// Opportunistic: errors are logged and ignored.
func (c *Cache) maybeSweep(ctx context.Context) {
	c.mu.Lock()
	now := c.now()
	if now.Sub(c.lastSweep) < c.sweepEvery {
		c.mu.Unlock()
		return
	}
	c.lastSweep = now
	c.mu.Unlock()

	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		c.logger.Warn("Cache sweep scan failed", zap.Error(err))
		return
	}

	removed := 0
	for _, storageKey := range keys {
		data, err := c.store.Get(ctx, storageKey)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		expiresAt := time.Unix(e.CreatedAt, 0).Add(time.Duration(e.TTLSec) * time.Second)
		if !now.Before(expiresAt) {
			if c.store.Del(ctx, storageKey) == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		c.logger.Info("Swept expired cache entries", zap.Int("removed", removed))
	}
}

func (c *Cache) miss() (domain.AggregatedReport, bool) {
	c.misses++
	c.incCache("miss")
	return domain.AggregatedReport{}, false
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
