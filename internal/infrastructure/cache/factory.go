package cache

import (
	"fmt"

	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewResultCache creates the result cache selected by configuration.
// The redis backend falls back to the in-memory cache when the
// connection cannot be established, so a cache outage never blocks the
// dashboard from serving.
func NewResultCache(cfg *config.Config, logger *zap.Logger) (ResultCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewInMemoryResultCache(WithCacheLogger(logger)), nil

	case "redis":
		rc, err := NewRedisResultCache(RedisCacheConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redis result cache unavailable, falling back to in-memory",
				zap.String("addr", cfg.Redis.Addr()),
				zap.Error(err),
			)
			return NewInMemoryResultCache(WithCacheLogger(logger)), nil
		}
		return rc, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
