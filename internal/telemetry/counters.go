package telemetry

import "sync"

// Counters is an in-memory Metrics implementation backing the diagnostics
// endpoint. The zero value is ready to use and safe for concurrent access.
type Counters struct {
	mu     sync.RWMutex
	values map[string]uint64
}

// NewCounters constructs an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments the named counter by delta.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	if c.values == nil {
		c.values = make(map[string]uint64)
	}
	c.values[key] += delta
	c.mu.Unlock()
}

// Store overwrites the named counter with value.
func (c *Counters) Store(key string, value uint64) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	if c.values == nil {
		c.values = make(map[string]uint64)
	}
	c.values[key] = value
	c.mu.Unlock()
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.values))
	for key, value := range c.values {
		out[key] = value
	}
	return out
}

// RecordJournalDrop counts a journal retention eviction under its metric
// name, satisfying the journal's telemetry seam.
func (c *Counters) RecordJournalDrop(metric string) {
	c.Add(metric, 1)
}
