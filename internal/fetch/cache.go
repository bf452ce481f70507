package fetch

import (
	"time"

	intcache "github.com/petcord/compositor/internal/cache"
)

// byteCache is a thin, type-safe facade over the shared MemoryCache for
// fetched asset bytes keyed by URL. Cost is the payload length.
type byteCache struct {
	mc  *intcache.MemoryCache
	ttl time.Duration
}

func newByteCache(maxBytes int64, ttl time.Duration) (*byteCache, error) {
	mc, err := intcache.NewMemoryCache(intcache.MemoryCacheConfig{
		Name:    "fetch",
		MaxCost: maxBytes,
		TTL:     ttl,
	})
	if err != nil {
		return nil, err
	}
	return &byteCache{mc: mc, ttl: ttl}, nil
}

func (c *byteCache) get(key string) ([]byte, bool) {
	v, ok := c.mc.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	return data, true
}

func (c *byteCache) set(key string, data []byte) {
	c.mc.Set(key, data, int64(len(data)), c.ttl)
}
