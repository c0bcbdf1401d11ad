package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backoffice/internal/domain/analytics"
)

// RedisResultCache implements ResultCache on Redis. This is suitable for
// deployments where multiple instances should share computed dashboards.
//
// Entries are stored as a JSON envelope carrying their own write time and
// TTL: the physical Redis expiry is padded with the stale retention so a
// logically expired value is still readable via GetStale.
type RedisResultCache struct {
	client         *redis.Client
	keyPrefix      string
	staleRetention time.Duration
}

// redisEnvelope is the stored representation of one cache entry.
type redisEnvelope struct {
	StoredAt time.Time          `json:"stored_at"`
	TTL      time.Duration      `json:"ttl"`
	Value    analytics.Overview `json:"value"`
}

func (e *redisEnvelope) expired(now time.Time) bool {
	return now.After(e.StoredAt.Add(e.TTL))
}

// RedisCacheConfig holds Redis connection configuration
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisResultCache creates a Redis-backed result cache and verifies
// the connection.
func NewRedisResultCache(cfg RedisCacheConfig) (*RedisResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisResultCache{
		client:         client,
		keyPrefix:      "dashboard:overview:",
		staleRetention: defaultStaleRetention,
	}, nil
}

// NewRedisResultCacheWithClient creates a cache with an existing client,
// useful for testing or sharing a client across components.
func NewRedisResultCacheWithClient(client *redis.Client, keyPrefix string) *RedisResultCache {
	if keyPrefix == "" {
		keyPrefix = "dashboard:overview:"
	}
	return &RedisResultCache{
		client:         client,
		keyPrefix:      keyPrefix,
		staleRetention: defaultStaleRetention,
	}
}

// Get retrieves a fresh overview; a value past its logical TTL counts as
// a miss even while it physically remains in Redis.
func (c *RedisResultCache) Get(ctx context.Context, key string) (*analytics.Overview, time.Time, error) {
	env, err := c.load(ctx, key)
	if err != nil || env == nil {
		return nil, time.Time{}, err
	}
	if env.expired(time.Now()) {
		return nil, time.Time{}, nil
	}
	return &env.Value, env.StoredAt, nil
}

// GetStale retrieves an overview regardless of logical freshness. The
// envelope's write time survives process restarts, so data age stays
// accurate for entries written by an earlier instance.
func (c *RedisResultCache) GetStale(ctx context.Context, key string) (*analytics.Overview, time.Time, error) {
	env, err := c.load(ctx, key)
	if err != nil || env == nil {
		return nil, time.Time{}, err
	}
	return &env.Value, env.StoredAt, nil
}

// Set replaces the entry for key. A nil value is a no-op.
func (c *RedisResultCache) Set(ctx context.Context, key string, value *analytics.Overview, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	env := redisEnvelope{
		StoredAt: time.Now(),
		TTL:      ttl,
		Value:    *value,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, ttl+c.staleRetention).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Has reports whether a fresh value exists for key.
func (c *RedisResultCache) Has(ctx context.Context, key string) (bool, error) {
	v, _, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// Clear drops all entries under the cache's key prefix.
func (c *RedisResultCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
	}
	return iter.Err()
}

// Stop closes the Redis client.
func (c *RedisResultCache) Stop() {
	_ = c.client.Close()
}

func (c *RedisResultCache) load(ctx context.Context, key string) (*redisEnvelope, error) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	var env redisEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &env, nil
}

var _ ResultCache = (*RedisResultCache)(nil)
