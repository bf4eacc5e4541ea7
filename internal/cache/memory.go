// Package cache provides opt.ResultCache implementations: an in-process TTL
// map and a Redis-backed cache shared between replicas.
package cache

import (
	"context"
	"sync"
	"time"

	"routecost/internal/metrics"
	"routecost/internal/opt"
)

// DefaultMaxEntries caps a Memory cache unless WithMaxEntries says otherwise.
const DefaultMaxEntries = 10000

type entry struct {
	result  opt.Result
	expires time.Time
}

// Memory is a TTL cache of computed results keyed by network fingerprint
// and demand. Expired entries are swept on writes at most once per ttl, and
// the map never holds more than maxEntries results.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	nextSweep  time.Time
	m          map[string]entry
}

// NewMemory constructs a Memory cache. A non-positive ttl keeps entries until
// they are evicted for space.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, maxEntries: DefaultMaxEntries, now: time.Now, m: map[string]entry{}}
}

// WithMaxEntries sets the size cap. n <= 0 removes it.
func (c *Memory) WithMaxEntries(n int) *Memory {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxEntries = n
	return c
}

// Get returns the cached result for key, dropping it if it has expired.
func (c *Memory) Get(_ context.Context, key string) (opt.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if ok && c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.m, key)
		ok = false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return opt.Result{}, false
	}
	metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
	return e.result, true
}

// Set stores r under key. When the cache is full an arbitrary entry makes
// room for it.
func (c *Memory) Set(_ context.Context, key string, r opt.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.ttl > 0 && !now.Before(c.nextSweep) {
		c.sweep(now)
		c.nextSweep = now.Add(c.ttl)
	}
	if _, ok := c.m[key]; !ok && c.maxEntries > 0 && len(c.m) >= c.maxEntries {
		if c.ttl > 0 {
			c.sweep(now)
		}
		for k := range c.m {
			if len(c.m) < c.maxEntries {
				break
			}
			delete(c.m, k)
		}
	}
	c.m[key] = entry{result: r, expires: now.Add(c.ttl)}
}

func (c *Memory) sweep(now time.Time) {
	for k, e := range c.m {
		if !now.Before(e.expires) {
			delete(c.m, k)
		}
	}
}

// Len reports the number of stored entries, including expired ones not yet
// swept.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
