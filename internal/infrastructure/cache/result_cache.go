package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/retailpos/backoffice/internal/domain/analytics"
	"go.uber.org/zap"
)

const (
	defaultCleanupInterval = 30 * time.Second
	// defaultStaleRetention is how long past expiry an entry stays
	// available for stale-while-revalidate reads before cleanup drops it.
	defaultStaleRetention = 30 * time.Minute
)

// ResultCache stores the last computed overview per (window x filter)
// key. A Get past TTL reports a miss; GetStale ignores freshness so a
// stale value can be shown while a background refresh proceeds. Reads
// carry the entry's write time so the caller can report data age even
// when the entry outlived the process that wrote it. Set always
// replaces the whole entry; there are no partial writes.
type ResultCache interface {
	Get(ctx context.Context, key string) (*analytics.Overview, time.Time, error)
	GetStale(ctx context.Context, key string) (*analytics.Overview, time.Time, error)
	Set(ctx context.Context, key string, value *analytics.Overview, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Stop()
}

// resultEntry wraps a cached overview with its write time and TTL.
type resultEntry struct {
	value    *analytics.Overview
	storedAt time.Time
	ttl      time.Duration
}

func (e *resultEntry) expired(now time.Time) bool {
	return now.After(e.storedAt.Add(e.ttl))
}

func (e *resultEntry) evictable(now time.Time, retention time.Duration) bool {
	return now.After(e.storedAt.Add(e.ttl + retention))
}

// InMemoryResultCache implements ResultCache with process-local storage.
// It is explicitly constructed and injected by the composing application;
// there is no package-level instance.
type InMemoryResultCache struct {
	entries        sync.Map // map[string]*resultEntry
	logger         *zap.Logger
	staleRetention time.Duration
	cleanupEvery   time.Duration
	stopCh         chan struct{}
	stopped        int32

	hits   int64
	misses int64
}

// InMemoryResultCacheOption is a functional option for configuring the cache
type InMemoryResultCacheOption func(*InMemoryResultCache)

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) InMemoryResultCacheOption {
	return func(c *InMemoryResultCache) {
		c.logger = logger
	}
}

// WithStaleRetention sets how long expired entries stay readable via GetStale
func WithStaleRetention(d time.Duration) InMemoryResultCacheOption {
	return func(c *InMemoryResultCache) {
		c.staleRetention = d
	}
}

// WithCleanupInterval sets the background eviction period
func WithCleanupInterval(d time.Duration) InMemoryResultCacheOption {
	return func(c *InMemoryResultCache) {
		c.cleanupEvery = d
	}
}

// NewInMemoryResultCache creates a new in-memory result cache and starts
// its background eviction goroutine.
func NewInMemoryResultCache(opts ...InMemoryResultCacheOption) *InMemoryResultCache {
	c := &InMemoryResultCache{
		logger:         zap.NewNop(),
		staleRetention: defaultStaleRetention,
		cleanupEvery:   defaultCleanupInterval,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()
	return c
}

// Get retrieves a fresh overview; a value past its TTL counts as a miss.
func (c *InMemoryResultCache) Get(ctx context.Context, key string) (*analytics.Overview, time.Time, error) {
	if v, ok := c.entries.Load(key); ok {
		entry := v.(*resultEntry)
		if !entry.expired(time.Now()) {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, entry.storedAt, nil
		}
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, time.Time{}, nil
}

// GetStale retrieves an overview regardless of freshness.
func (c *InMemoryResultCache) GetStale(ctx context.Context, key string) (*analytics.Overview, time.Time, error) {
	if v, ok := c.entries.Load(key); ok {
		entry := v.(*resultEntry)
		return entry.value, entry.storedAt, nil
	}
	return nil, time.Time{}, nil
}

// Set replaces the entry for key. A nil value is a no-op.
func (c *InMemoryResultCache) Set(ctx context.Context, key string, value *analytics.Overview, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.entries.Store(key, &resultEntry{
		value:    value,
		storedAt: time.Now(),
		ttl:      ttl,
	})
	c.logger.Debug("Result cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Has reports whether a fresh value exists for key.
func (c *InMemoryResultCache) Has(ctx context.Context, key string) (bool, error) {
	if v, ok := c.entries.Load(key); ok {
		return !v.(*resultEntry).expired(time.Now()), nil
	}
	return false, nil
}

// Clear drops all entries.
func (c *InMemoryResultCache) Clear(ctx context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	return nil
}

// Stop terminates the background eviction goroutine. Safe to call more
// than once.
func (c *InMemoryResultCache) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

// Stats returns hit/miss counters for monitoring.
func (c *InMemoryResultCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func (c *InMemoryResultCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			removed := 0
			c.entries.Range(func(key, v any) bool {
				if v.(*resultEntry).evictable(now, c.staleRetention) {
					c.entries.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				c.logger.Debug("Evicted expired dashboard results", zap.Int("count", removed))
			}
		}
	}
}

var _ ResultCache = (*InMemoryResultCache)(nil)
