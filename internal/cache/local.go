package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Entry is a cached value and the time it was written.
type Entry[V any] struct {
	Key       string
	Value     V
	WrittenAt time.Time
}

// Local is a process-local cache guarded by a single mutex.  An entry is
// visible only while now - WrittenAt <= TTL; expired entries are dropped
// lazily on Get or in bulk by Sweep.
//
// Values are stored and returned as given.  Reference values such as
// slices are shared between readers and must not be mutated.
type Local[V any] struct {
	mu       sync.Mutex
	entries  map[string]Entry[V]
	versions map[string]uint64
	epoch    uint64
	ttl      time.Duration
	clock    clockwork.Clock
}

// NewLocal returns an empty Local cache.  A non-positive ttl disables
// storage entirely.  A nil clock means the real clock.
func NewLocal[V any](ttl time.Duration, clk clockwork.Clock) *Local[V] {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Local[V]{
		entries:  make(map[string]Entry[V]),
		versions: make(map[string]uint64),
		ttl:      ttl,
		clock:    clk,
	}
}

func (c *Local[V]) Get(_ context.Context, key string) (V, Version, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if c.clock.Since(e.WrittenAt) <= c.ttl {
			return e.Value, Version{}, true
		}
		delete(c.entries, key)
	}
	var zero V
	return zero, c.versionLocked(key), false
}

func (c *Local[V]) Set(_ context.Context, key string, value V, ver Version) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versionLocked(key) != ver {
		return false
	}
	c.entries[key] = Entry[V]{Key: key, Value: value, WrittenAt: c.clock.Now()}
	return true
}

// Invalidate drops keys and bumps their versions.  Versions are only
// forgotten together with an epoch bump, so an old Version never becomes
// current again.
func (c *Local[V]) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		clear(c.entries)
		clear(c.versions)
		c.epoch++
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
		c.versions[k]++
	}
}

func (c *Local[V]) versionLocked(key string) Version {
	return Version{Epoch: c.epoch, Key: c.versions[key]}
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Local[V]) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.WrittenAt) > c.ttl {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len reports the number of physically present entries, expired or not.
func (c *Local[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunJanitor calls Sweep every interval until ctx is done.
func (c *Local[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Sweep()
		}
	}
}
