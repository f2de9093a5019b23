package cache

import (
	"fmt"
	"sync"
	"time"

	"ai-learning-backend/internal/infra/metrics"
)

// Key identifies generated content by the semantic parameters of the
// request. Field order is fixed, so plain struct equality is enough.
type Key struct {
	Type       string
	Subject    string
	Grade      string
	Difficulty string
	Count      int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", k.Type, k.Subject, k.Grade, k.Difficulty, k.Count)
}

type entry struct {
	data     any
	storedAt time.Time
}

// ContentCache is a process-local TTL cache for generated content. Entries
// expire lazily on Get; Sweep removes expired entries in bulk and a
// max-entries cap bounds memory in long-lived processes.
type ContentCache struct {
	mu         sync.Mutex
	entries    map[Key]entry
	ttl        time.Duration
	maxEntries int

	now func() time.Time
}

func New(ttl time.Duration, maxEntries int) *ContentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ContentCache{
		entries:    make(map[Key]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for k, or false. An expired entry is deleted
// and reported as a miss.
func (c *ContentCache) Get(k Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		metrics.IncCacheRequest("content", "miss")
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, k)
		metrics.IncCacheRequest("content", "expired")
		return nil, false
	}
	metrics.IncCacheRequest("content", "hit")
	return e.data, true
}

// Set stores data under k, overwriting unconditionally (last writer wins).
// When the cap is reached the oldest entry is evicted first.
func (c *ContentCache) Set(k Key, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[k]; !exists {
			c.evictOldestLocked()
		}
	}
	c.entries[k] = entry{data: data, storedAt: c.now()}
}

// Clear drops everything.
func (c *ContentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *ContentCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count.
func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ContentCache) evictOldestLocked() {
	var oldest Key
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldest, oldestAt, first = k, e.storedAt, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
