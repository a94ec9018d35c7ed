// Package cache holds the read-through caches used by dashboard queries.
// Caches hold copies of store data and are never consulted on write
// paths.  None of the operations return errors: a cache fault behaves
// like a miss.
package cache

import "context"

// Version is the invalidation state of one key.  Get reports it on a
// miss and Set only stores when it is still current, so a list loaded
// before a write cannot be cached after that write's Invalidate.
type Version struct {
	Epoch uint64 // bumped when every key is invalidated
	Key   uint64 // bumped when this key is invalidated
}

// Cache is a keyed, time-bounded cache of V values.  Invalidate with no
// keys clears every entry.
type Cache[V any] interface {
	// Get returns the cached value, or the key's current Version on a miss.
	Get(ctx context.Context, key string) (V, Version, bool)
	// Set stores value unless key was invalidated after ver was read.
	Set(ctx context.Context, key string, value V, ver Version) bool
	Invalidate(ctx context.Context, keys ...string)
}

// Nop is a Cache that never stores anything.  It is used when caching is
// disabled by configuration.
type Nop[V any] struct{}

func (Nop[V]) Get(context.Context, string) (V, Version, bool) {
	var zero V
	return zero, Version{}, false
}

func (Nop[V]) Set(context.Context, string, V, Version) bool { return false }

func (Nop[V]) Invalidate(context.Context, ...string) {}
