package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// item represents a cached value with expiration
type item struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
	tags      []string
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// InMemoryTagCache is a tag-aware cache kept in process memory.
// It is suitable for single-instance deployments and testing.
type InMemoryTagCache struct {
	mu        sync.RWMutex
	items     map[string]item
	tags      map[string]map[string]struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTagCache creates a new in-memory cache.
// It starts a background goroutine to drop expired entries.
func NewInMemoryTagCache() *InMemoryTagCache {
	c := &InMemoryTagCache{
		items:    make(map[string]item),
		tags:     make(map[string]map[string]struct{}),
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get decodes the value stored under key into dest
func (c *InMemoryTagCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || it.expired(time.Now()) {
		return false, nil
	}
	if err := json.Unmarshal(it.value, dest); err != nil {
		return false, fmt.Errorf("decode cached value %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key. A zero ttl keeps the value until one of its
// tags is invalidated.
func (c *InMemoryTagCache) Set(_ context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", key, err)
	}
	it := item{value: raw, tags: tags}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	c.items[key] = it
	for _, tag := range tags {
		if c.tags[tag] == nil {
			c.tags[tag] = make(map[string]struct{})
		}
		c.tags[tag][key] = struct{}{}
	}
	return nil
}

// Delete removes key
func (c *InMemoryTagCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	return nil
}

// InvalidateTags removes every value stored with one of tags
func (c *InMemoryTagCache) InvalidateTags(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for key := range c.tags[tag] {
			c.removeLocked(key)
		}
		delete(c.tags, tag)
	}
	return nil
}

// Len returns the number of stored values, including expired ones not yet
// cleaned up
func (c *InMemoryTagCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemoryTagCache) removeLocked(key string) {
	it, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	for _, tag := range it.tags {
		if keys := c.tags[tag]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryTagCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

func (c *InMemoryTagCache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, it := range c.items {
		if it.expired(now) {
			c.removeLocked(key)
		}
	}
}

// Close stops the cleanup goroutine
func (c *InMemoryTagCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}
