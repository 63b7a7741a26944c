// Package cache holds the most recently collected value of every metric.
//
// The cache has a single logical writer (the collection cycle) and any number of
// readers (scrapes). State is copy-on-write: writers build a new immutable map and
// publish it with an atomic pointer swap, so readers never take a lock and never wait
// on a writer. A labeled metric is always replaced as a whole set; labels missing from
// the newest set are pruned.
package cache

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/oraexporter/internal/source"
)

// DefaultValue is returned for metrics (or labels) that were never collected.
const DefaultValue = 0.0

// Entry is the stored value of one metric. Entries held by the cache are never mutated.
type Entry struct {
	Value     source.Value
	UpdatedAt time.Time
}

func (e Entry) clone() Entry {
	if e.Value.Kind == source.KindLabeled {
		e.Value.Labeled = maps.Clone(e.Value.Labeled)
		if e.Value.Labeled == nil {
			e.Value.Labeled = map[string]float64{}
		}
	}
	return e
}

// MetricCache is a concurrency-safe store keyed by metric name.
type MetricCache struct {
	mu    sync.Mutex // serializes writers only
	state atomic.Pointer[map[string]Entry]
	clock clockwork.Clock
}

// Option configures a MetricCache.
type Option func(*MetricCache)

// WithClock sets the clock used to stamp writes.
func WithClock(c clockwork.Clock) Option {
	return func(m *MetricCache) { m.clock = c }
}

// New creates an empty cache.
func New(opts ...Option) *MetricCache {
	c := &MetricCache{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(c)
	}
	empty := map[string]Entry{}
	c.state.Store(&empty)
	return c
}

func (c *MetricCache) load() map[string]Entry { return *c.state.Load() }

// Store overwrites the value of name.
func (c *MetricCache) Store(name string, v source.Value) {
	entry := Entry{Value: v, UpdatedAt: c.clock.Now()}.clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	next := maps.Clone(c.load())
	next[name] = entry
	c.state.Store(&next)
}

// Set overwrites a scalar metric.
func (c *MetricCache) Set(name string, v float64) { c.Store(name, source.Scalar(v)) }

// SetLabeled replaces the complete label set of a labeled metric.
func (c *MetricCache) SetLabeled(name string, values map[string]float64) {
	c.Store(name, source.Labeled(values))
}

// Get returns the scalar value of name, or DefaultValue if never written.
func (c *MetricCache) Get(name string) float64 {
	return Snapshot(c.load()).Get(name)
}

// GetLabeled returns the value of name for the given label key, or DefaultValue.
func (c *MetricCache) GetLabeled(name, label string) float64 {
	return Snapshot(c.load()).GetLabeled(name, label)
}

// Entry returns the stored entry of name.
func (c *MetricCache) Entry(name string) (Entry, bool) {
	e, ok := c.load()[name]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Snapshot returns a deep copy of every current entry. It never blocks on writers.
func (c *MetricCache) Snapshot() Snapshot {
	cur := c.load()
	out := make(Snapshot, len(cur))
	for name, e := range cur {
		out[name] = e.clone()
	}
	return out
}

// Snapshot is a point-in-time copy of the cache.
type Snapshot map[string]Entry

// Get returns the scalar value of name, or DefaultValue.
func (s Snapshot) Get(name string) float64 {
	e, ok := s[name]
	if !ok || e.Value.Kind != source.KindScalar {
		return DefaultValue
	}
	return e.Value.Scalar
}

// GetLabeled returns the value of name for label, or DefaultValue.
func (s Snapshot) GetLabeled(name, label string) float64 {
	e, ok := s[name]
	if !ok || e.Value.Kind != source.KindLabeled {
		return DefaultValue
	}
	if v, ok := e.Value.Labeled[label]; ok {
		return v
	}
	return DefaultValue
}
