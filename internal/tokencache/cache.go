// Package tokencache implements the bounded, timestamp-ordered cache of
// per-document tokenization results used by completion (spec §3 "Token
// Cache Entry", §4.4 C4).
//
// A hashicorp/golang-lru-style recency cache was considered (it's already
// present in the retrieval pack's dependency graph via
// openshift-source-to-image's vendored go.opencensus.io) and rejected: its
// eviction order bumps an entry's recency on Get, which would let a
// frequently-read stale entry outlive a never-read fresh one — violating
// spec.md's Testable Property P6 ("oldest timestamps" eviction, not
// least-recently-used). The cache here is a small purpose-built map
// instead; see DESIGN.md for the full rejection note.
package tokencache

import (
	"sync"
	"time"
)

// Entry is one cached tokenization result, keyed externally by document URI.
type Entry struct {
	Version     int64
	SplitTokens []string
	Timestamp   time.Time
}

// Cache is safe for concurrent use, though spec §5 notes the bridge's own
// access pattern is single-writer/single-reader via its event loop; the
// mutex exists so library consumers on a thread-per-request runtime (spec
// §5) don't have to add their own.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]Entry
}

// DefaultMaxSize is the default cache bound (spec §4.4 "Eviction").
const DefaultMaxSize = 50

// New creates a Cache bounded to maxSize entries. maxSize <= 0 uses
// DefaultMaxSize.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{maxSize: maxSize, entries: make(map[string]Entry)}
}

// Get returns the cached entry for uri and whether it was present. Callers
// must additionally compare Entry.Version against their own expected
// version — the cache is opportunistic and serves whatever it has; version
// gating is the caller's responsibility at the point of use (spec §4.4
// "Consistency", Testable Property P5), done this way so Get never needs
// to know the caller's notion of "current version".
func (c *Cache) Get(uri string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[uri]
	return e, ok
}

// GetForVersion returns the cached entry for uri only if its stored version
// equals version, enforcing Testable Property P5 directly.
func (c *Cache) GetForVersion(uri string, version int64) (Entry, bool) {
	e, ok := c.Get(uri)
	if !ok || e.Version != version {
		return Entry{}, false
	}
	return e, true
}

// Put inserts or replaces the entry for uri, stamping it with the current
// time, then evicts oldest-timestamp entries until the cache is back within
// maxSize (spec §4.4 "Eviction", Testable Property P6).
func (c *Cache) Put(uri string, version int64, tokens []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[uri] = Entry{Version: version, SplitTokens: tokens, Timestamp: now()}
	c.evictLocked()
}

// now is a seam so tests can avoid relying on wall-clock ordering when a
// Put-heavy sequence happens within the same clock tick.
var now = time.Now

func (c *Cache) evictLocked() {
	for len(c.entries) > c.maxSize {
		var oldestURI string
		var oldestAt time.Time
		first := true
		for uri, e := range c.entries {
			if first || e.Timestamp.Before(oldestAt) {
				oldestURI = uri
				oldestAt = e.Timestamp
				first = false
			}
		}
		delete(c.entries, oldestURI)
	}
}

// Invalidate removes uri's entry, if any.
func (c *Cache) Invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, uri)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len reports the current number of entries, for cache-stats diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MaxSize reports the configured bound.
func (c *Cache) MaxSize() int {
	return c.maxSize
}
