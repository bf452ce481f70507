// Package cache provides the ristretto-backed, TTL/size-bounded memory
// cache shared by the asset fetcher's byte cache and the image decoder's
// bitmap cache.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/petcord/compositor/internal/logger"
)

// MemoryCache is a named, cost-accounted, TTL-bounded in-memory cache.
// Values are opaque (any) so it can hold raw asset bytes or decoded
// bitmaps under the same eviction policy.
type MemoryCache struct {
	cache *ristretto.Cache
	name  string
}

// MemoryCacheConfig defines configuration for the memory cache.
type MemoryCacheConfig struct {
	Name        string        // Cache name for logging
	MaxCost     int64         // Max total cost (bytes, typically)
	MaxItems    int64         // Expected item count (optional, estimated from MaxCost otherwise)
	BufferItems int64         // Ristretto NumCounters (defaults to 10x MaxItems, at least 1000)
	TTL         time.Duration // Not applied by NewMemoryCache; Set takes each entry's TTL
}

// NewMemoryCache creates a new in-memory cache with the given configuration.
func NewMemoryCache(cfg MemoryCacheConfig) (*MemoryCache, error) {
	if cfg.MaxCost == 0 {
		return nil, fmt.Errorf("MaxCost must be specified for memory cache")
	}

	if cfg.MaxItems == 0 {
		// Estimate: assume average item is ~64KB.
		cfg.MaxItems = cfg.MaxCost / (64 * 1024)
		if cfg.MaxItems < 100 {
			cfg.MaxItems = 100
		}
	}

	if cfg.BufferItems == 0 {
		cfg.BufferItems = cfg.MaxItems * 10
		if cfg.BufferItems < 1000 {
			cfg.BufferItems = 1000
		}
	}

	name := cfg.Name
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.BufferItems,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
		Metrics:     true,
		OnEvict: func(item *ristretto.Item) {
			if name != "" {
				logger.Debugf("[MemoryCache:%s] evicted item (cost: %d)", name, item.Cost)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	logger.Infof("[MemoryCache:%s] initialized: maxCost=%d maxItems=%d", name, cfg.MaxCost, cfg.MaxItems)

	return &MemoryCache{cache: rc, name: name}, nil
}

// Get retrieves a value from the cache. Returns (value, found).
func (mc *MemoryCache) Get(key string) (any, bool) {
	value, found := mc.cache.Get(key)
	if !found {
		return nil, false
	}
	logger.Debugf("[MemoryCache:%s] cache HIT for key: %s", mc.name, key)
	return value, true
}

// Set stores value under key with the given cost and TTL, and waits for
// the write to be applied so an immediate Get sees it.
func (mc *MemoryCache) Set(key string, value any, cost int64, ttl time.Duration) bool {
	success := mc.cache.SetWithTTL(key, value, cost, ttl)
	if !success {
		logger.Debugf("[MemoryCache:%s] set rejected for key: %s (buffer full)", mc.name, key)
		return false
	}
	mc.cache.Wait()
	return true
}

// Delete removes a key from the cache.
func (mc *MemoryCache) Delete(key string) {
	mc.cache.Del(key)
}

// GetMetrics returns cache performance metrics.
func (mc *MemoryCache) GetMetrics() *ristretto.Metrics {
	return mc.cache.Metrics
}

// Close releases the cache's background resources.
func (mc *MemoryCache) Close() {
	mc.cache.Close()
	logger.Infof("[MemoryCache:%s] closed", mc.name)
}
