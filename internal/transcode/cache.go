package transcode

import (
	"sync"
	"time"
)

// CachedResult records a finished transcode so redeliveries of the
// same job can skip the work entirely.
type CachedResult struct {
	OptimizedPath string
	Width         int
	Height        int
}

// ResultCache is a TTL cache keyed by image ID.
type ResultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	result   CachedResult
	expireAt time.Time
}

func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *ResultCache) Get(imageID string) (CachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[imageID]
	if !ok {
		return CachedResult{}, false
	}
	if c.now().After(entry.expireAt) {
		delete(c.entries, imageID)
		return CachedResult{}, false
	}
	return entry.result, true
}

func (c *ResultCache) Set(imageID string, result CachedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[imageID] = cacheEntry{
		result:   result,
		expireAt: c.now().Add(c.ttl),
	}
}

func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
