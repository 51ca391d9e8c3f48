package cache

import (
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Stats tracks cache effectiveness
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns the cache hit rate as a percentage
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Cache is a process-lifetime memo. Entries never expire.
//
// Namespaced views share the backing store, the in-flight group and the
// counters with their parent; only the key prefix differs.
type Cache struct {
	store  *gocache.Cache
	group  *singleflight.Group
	stats  *counters
	prefix string
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
		group: &singleflight.Group{},
		stats: &counters{},
	}
}

// Namespaced returns a view of c whose keys live under ns
func (c *Cache) Namespaced(ns string) *Cache {
	return &Cache{
		store:  c.store,
		group:  c.group,
		stats:  c.stats,
		prefix: c.prefix + ns + ":",
	}
}

// Namespace returns the key prefix of this view
func (c *Cache) Namespace() string {
	return c.prefix
}

// Get retrieves a stored value
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(c.prefix + key)
}

// FetchOrStore returns the value stored under key, building and storing it on
// first use. Concurrent callers for the same key share one build; a failed
// build is not stored, so a later call builds again.
//
// build may itself call FetchOrStore for other keys.
func (c *Cache) FetchOrStore(key string, build func() (any, error)) (any, error) {
	full := c.prefix + key

	if v, ok := c.store.Get(full); ok {
		c.stats.hits.Add(1)
		return v, nil
	}

	v, err, _ := c.group.Do(full, func() (any, error) {
		// A caller that lost the race to the previous flight lands here after
		// the value was stored.
		if v, ok := c.store.Get(full); ok {
			c.stats.hits.Add(1)
			return v, nil
		}
		c.stats.misses.Add(1)

		v, err := build()
		if err != nil {
			return nil, err
		}
		c.store.Set(full, v, gocache.NoExpiration)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Size returns the number of entries across all namespaces
func (c *Cache) Size() int {
	return c.store.ItemCount()
}

// Stats returns a snapshot of the hit/miss counters
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.stats.hits.Load(),
		Misses: c.stats.misses.Load(),
	}
}
