package moodstream

import "sync"

// ResponseCache memoizes validated generation output by context
// fingerprint. Entries live for the process lifetime; cardinality is
// bounded by the distinct fingerprints a session can produce, so there is
// no eviction. Callers implement forceFresh by skipping Get while still
// calling Put with the new result.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[Fingerprint][]Segment
}

// NewResponseCache returns an empty cache.
func NewResponseCache() *ResponseCache {
	return &ResponseCache{entries: make(map[Fingerprint][]Segment)}
}

// Get returns a copy of the cached batch for fp, if present.
func (c *ResponseCache) Get(fp Fingerprint) ([]Segment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	segs, ok := c.entries[fp]
	if !ok {
		return nil, false
	}
	out := make([]Segment, len(segs))
	copy(out, segs)
	return out, true
}

// Put stores a copy of the batch under fp, replacing any earlier entry.
func (c *ResponseCache) Put(fp Fingerprint, segments []Segment) {
	stored := make([]Segment, len(segments))
	copy(stored, segments)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = stored
}

// Len reports the number of cached fingerprints.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset discards all entries. Used by tests and the refresh lifecycle.
func (c *ResponseCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Fingerprint][]Segment)
}
