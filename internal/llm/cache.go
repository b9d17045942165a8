package llm

import (
	"sync"
	"time"
)

// cacheEntry represents a cached embedding vector.
type cacheEntry struct {
	expiry time.Time
	vector []float32
}

// embeddingCache provides thread-safe TTL caching for embedding vectors.
// Catalog text and repeated queries hit the same vectors constantly, and
// embeddings are immutable for a given input.
type embeddingCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// newEmbeddingCache creates a new cache with the specified TTL.
func newEmbeddingCache(ttl time.Duration) *embeddingCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &embeddingCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// get retrieves a vector from the cache if it exists and hasn't expired.
func (c *embeddingCache) get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiry) {
		return nil, false
	}

	return entry.vector, true
}

// set stores a vector in the cache, opportunistically dropping expired
// entries so the map does not grow without bound.
func (c *embeddingCache) set(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if len(c.entries) > 0 && len(c.entries)%512 == 0 {
		for k, entry := range c.entries {
			if now.After(entry.expiry) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = cacheEntry{
		vector: vector,
		expiry: now.Add(c.ttl),
	}
}
