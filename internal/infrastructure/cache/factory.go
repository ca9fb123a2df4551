package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/infrastructure/config"
)

// TagCache is the cache interface offered by this package
type TagCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	Delete(ctx context.Context, key string) error
	InvalidateTags(ctx context.Context, tags ...string) error
	Close() error
}

// Factory creates tag caches based on configuration
type Factory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the cache selected by cache.backend. A redis backend that
// cannot be reached falls back to memory unless the fallback is disabled.
func (f *Factory) Create() (TagCache, error) {
	if f.cacheConfig.Backend != "redis" {
		f.logger.Info("using in-memory tag cache")
		return NewInMemoryTagCache(), nil
	}

	c, err := NewRedisTagCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis tag cache")
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for cache but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory tag cache. "+
		"Invalidations will not be shared between instances.",
		zap.Error(err),
	)
	return NewInMemoryTagCache(), nil
}

var (
	_ TagCache = (*InMemoryTagCache)(nil)
	_ TagCache = (*RedisTagCache)(nil)
)
