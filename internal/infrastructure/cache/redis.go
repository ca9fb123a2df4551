package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisTagCache implements a tag-aware cache on Redis. Each tag is a set
// holding the keys stored with it, so several instances share invalidations.
type RedisTagCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTagCache connects to Redis and creates the cache
func NewRedisTagCache(cfg RedisConfig) (*RedisTagCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTagCacheWithClient(client, ""), nil
}

// NewRedisTagCacheWithClient creates a cache with an existing Redis client
func NewRedisTagCacheWithClient(client *redis.Client, keyPrefix string) *RedisTagCache {
	if keyPrefix == "" {
		keyPrefix = "partdb:cache:"
	}
	return &RedisTagCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisTagCache) valueKey(key string) string {
	return c.keyPrefix + "v:" + key
}

func (c *RedisTagCache) tagKey(tag string) string {
	return c.keyPrefix + "t:" + tag
}

// Get decodes the value stored under key into dest
func (c *RedisTagCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached value %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key and registers key with each tag
func (c *RedisTagCache) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", key, err)
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.valueKey(key), raw, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, c.tagKey(tag), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}

// Delete removes key
func (c *RedisTagCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.valueKey(key)).Err()
}

// InvalidateTags removes every value stored with one of tags
func (c *RedisTagCache) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		tk := c.tagKey(tag)
		keys, err := c.client.SMembers(ctx, tk).Result()
		if err != nil {
			return fmt.Errorf("failed to read tag %q: %w", tag, err)
		}
		del := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			del = append(del, c.valueKey(k))
		}
		del = append(del, tk)
		if err := c.client.Del(ctx, del...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate tag %q: %w", tag, err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisTagCache) Close() error {
	return c.client.Close()
}
