package cache

import (
	"context"
	"time"
)

// nullCache stores nothing. It backs --no-cache and the "none" backend, so
// every flowchart, trace and render is rebuilt.
type nullCache struct{}

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache {
	return nullCache{}
}

// IsDisabled reports whether c is the cache returned by [NewNullCache].
func IsDisabled(c Cache) bool {
	_, ok := c.(nullCache)
	return ok
}

func (nullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (nullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (nullCache) Delete(context.Context, string) error { return nil }

func (nullCache) Close() error { return nil }
