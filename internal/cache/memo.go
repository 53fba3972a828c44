package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type memoEntry[T any] struct {
	value T
	err   error
}

// Memo caches the result of an expensive load per key. Concurrent first
// calls for the same key share one load. Failed loads are remembered for
// failureTTL so a broken resource is not retried on every call.
type Memo[T any] struct {
	items      *gocache.Cache
	group      singleflight.Group
	ttl        time.Duration
	failureTTL time.Duration
}

// NewMemo creates a memo. ttl 0 keeps successful loads for the life of the
// process.
func NewMemo[T any](ttl, failureTTL time.Duration) *Memo[T] {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if failureTTL <= 0 {
		failureTTL = 30 * time.Second
	}
	return &Memo[T]{
		items:      gocache.New(ttl, time.Minute),
		ttl:        ttl,
		failureTTL: failureTTL,
	}
}

// Get returns the memoized value for key, calling load at most once per
// key among concurrent callers
func (m *Memo[T]) Get(key string, load func() (T, error)) (T, error) {
	if entry, ok := m.lookup(key); ok {
		return entry.value, entry.err
	}

	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		if entry, ok := m.lookup(key); ok {
			return entry, nil
		}

		value, err := load()
		entry := memoEntry[T]{value: value, err: err}
		if err != nil {
			m.items.Set(key, entry, m.failureTTL)
		} else {
			m.items.Set(key, entry, m.ttl)
		}
		return entry, nil
	})

	entry := v.(memoEntry[T])
	return entry.value, entry.err
}

func (m *Memo[T]) lookup(key string) (memoEntry[T], bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return memoEntry[T]{}, false
	}
	entry, ok := v.(memoEntry[T])
	return entry, ok
}
