package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(size int, ttl time.Duration) map[string]Store[string, int] {
	return map[string]Store[string, int]{
		BackendLRU: NewLRU[string, int](size, ttl),
		BackendTTL: NewTTL[string, int](size, ttl),
	}
}

func TestStoreBasics(t *testing.T) {
	for name, store := range backends(4, time.Minute) {
		t.Run(name, func(t *testing.T) {
			store.Set("a", 1)
			store.Set("b", 2)

			v, ok := store.Get("a")
			require.True(t, ok)
			assert.Equal(t, 1, v)
			assert.Equal(t, 2, store.Len())

			store.Delete("a")
			_, ok = store.Get("a")
			assert.False(t, ok)

			store.Purge()
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestStoreIsBounded(t *testing.T) {
	for name, store := range backends(2, time.Minute) {
		t.Run(name, func(t *testing.T) {
			store.Set("a", 1)
			store.Set("b", 2)
			store.Set("c", 3)
			assert.Equal(t, 2, store.Len())
			_, ok := store.Get("c")
			assert.True(t, ok)
		})
	}
}

func TestStoreExpires(t *testing.T) {
	for name, store := range backends(4, 20*time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			store.Set("a", 1)
			assert.Eventually(t, func() bool {
				_, ok := store.Get("a")
				return !ok
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New[string, string](Options{Backend: BackendTTL})
	require.NoError(t, err)
	assert.IsType(t, &TTL[string, string]{}, s)

	s, err = New[string, string](Options{})
	require.NoError(t, err)
	assert.IsType(t, &LRU[string, string]{}, s)

	_, err = New[string, string](Options{Backend: "redis"})
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var s Store[string, int] = Noop[string, int]{}
	s.Set("a", 1)
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}
