package enrich

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 1024

// LookupCache remembers lookup outcomes for identical (name, country) pairs
// within a single run. A cached miss is stored as ok=false.
type LookupCache[V any] struct {
	entries *lru.Cache[string, cached[V]]
}

type cached[V any] struct {
	value V
	ok    bool
}

// NewLookupCache builds a cache holding at most size entries.
func NewLookupCache[V any](size int) *LookupCache[V] {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, err := lru.New[string, cached[V]](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &LookupCache[V]{entries: entries}
}

// CacheKey builds the cache key for a lookup.
func CacheKey(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "|"
		}
		key += Normalize(p)
	}
	return key
}

// Get returns the cached outcome. hit reports whether the key was present at all.
func (c *LookupCache[V]) Get(key string) (value V, ok bool, hit bool) {
	entry, hit := c.entries.Get(key)
	if !hit {
		var zero V
		return zero, false, false
	}
	return entry.value, entry.ok, true
}

// Put stores a lookup outcome.
func (c *LookupCache[V]) Put(key string, value V, ok bool) {
	c.entries.Add(key, cached[V]{value: value, ok: ok})
}

// Len returns the number of cached lookups.
func (c *LookupCache[V]) Len() int {
	return c.entries.Len()
}
