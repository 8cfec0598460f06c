// Package cache provides the bounded, expiring key-value stores used for
// profile lookups. Every store evicts on both entry count and age.
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jellydator/ttlcache/v3"
)

// Store is a bounded cache with per-entry expiry.
type Store[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Purge()
	Len() int
}

// Options sizes a store.
type Options struct {
	Backend    string
	MaxEntries int
	TTL        time.Duration
}

const (
	BackendLRU = "lru"
	BackendTTL = "ttl"

	defaultMaxEntries = 256
	defaultTTL        = time.Hour
)

// New builds a store for the requested backend.
func New[K comparable, V any](opts Options) (Store[K, V], error) {
	switch opts.Backend {
	case "", BackendLRU:
		return NewLRU[K, V](opts.MaxEntries, opts.TTL), nil
	case BackendTTL:
		return NewTTL[K, V](opts.MaxEntries, opts.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

func normalize(size int, ttl time.Duration) (int, time.Duration) {
	if size <= 0 {
		size = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return size, ttl
}

// LRU evicts the least recently used entry once full and drops entries older than the TTL.
type LRU[K comparable, V any] struct {
	inner *expirable.LRU[K, V]
}

// NewLRU creates an LRU store.
func NewLRU[K comparable, V any](size int, ttl time.Duration) *LRU[K, V] {
	size, ttl = normalize(size, ttl)
	return &LRU[K, V]{inner: expirable.NewLRU[K, V](size, nil, ttl)}
}

func (c *LRU[K, V]) Get(key K) (V, bool) { return c.inner.Get(key) }
func (c *LRU[K, V]) Set(key K, value V)  { c.inner.Add(key, value) }
func (c *LRU[K, V]) Delete(key K)        { c.inner.Remove(key) }
func (c *LRU[K, V]) Purge()              { c.inner.Purge() }
func (c *LRU[K, V]) Len() int            { return c.inner.Len() }

// TTL keeps entries until they expire, evicting the entry closest to expiry when full.
type TTL[K comparable, V any] struct {
	inner *ttlcache.Cache[K, V]
}

// NewTTL creates a ttlcache backed store.
func NewTTL[K comparable, V any](size int, ttl time.Duration) *TTL[K, V] {
	size, ttl = normalize(size, ttl)
	return &TTL[K, V]{inner: ttlcache.New[K, V](
		ttlcache.WithTTL[K, V](ttl),
		ttlcache.WithCapacity[K, V](uint64(size)),
		ttlcache.WithDisableTouchOnHit[K, V](),
	)}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	item := c.inner.Get(key)
	if item == nil || item.IsExpired() {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

func (c *TTL[K, V]) Set(key K, value V) { c.inner.Set(key, value, ttlcache.DefaultTTL) }
func (c *TTL[K, V]) Delete(key K)       { c.inner.Delete(key) }
func (c *TTL[K, V]) Purge()             { c.inner.DeleteAll() }

func (c *TTL[K, V]) Len() int {
	c.inner.DeleteExpired()
	return c.inner.Len()
}

// Noop never stores anything.
type Noop[K comparable, V any] struct{}

func (Noop[K, V]) Get(K) (V, bool) {
	var zero V
	return zero, false
}
func (Noop[K, V]) Set(K, V) {}
func (Noop[K, V]) Delete(K) {}
func (Noop[K, V]) Purge()   {}
func (Noop[K, V]) Len() int { return 0 }
