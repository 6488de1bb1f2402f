// Package cache stores pipeline results keyed by content hashes.
//
// # Backends
//
//   - [NewNullCache]: stores nothing, for --no-cache runs and the "none" backend
//   - [FileCache]: JSON files under a directory, for the CLI
//   - [MemoryCache]: a bounded in-process LRU, for the API server
//   - [RedisCache]: shared storage for multi-instance deployments
//
// # Keys
//
// A [Keyer] derives keys from inputs so that identical code, inputs and
// options map to the same entry. [ScopedKeyer] prefixes every key, which
// lets tenants or test runs share one backend without collisions.
//
// Trace generation is the expensive stage (a model call per request), so
// traces and summaries carry the longest TTLs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/codeflow/pkg/observability"
)

// Default time-to-live values per entry type.
const (
	TTLGraph   = 24 * time.Hour
	TTLTrace   = 7 * 24 * time.Hour
	TTLSummary = 7 * 24 * time.Hour
	TTLRender  = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// GetJSON loads and decodes a cached artifact of the given kind, reporting
// hits and misses to the cache hooks. A backend failure or an entry that
// does not decode is a miss and comes back as an [*Error].
func GetJSON(ctx context.Context, c Cache, kind, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		observability.Cache().OnCacheMiss(ctx, kind)
		return false, &Error{Kind: kind, Op: "get", Err: err}
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, kind)
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		observability.Cache().OnCacheMiss(ctx, kind)
		return false, &Error{Kind: kind, Op: "get", Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	observability.Cache().OnCacheHit(ctx, kind)
	return true, nil
}

// SetJSON encodes and stores an artifact of the given kind.
func SetJSON(ctx context.Context, c Cache, kind, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Kind: kind, Op: "set", Err: err}
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return &Error{Kind: kind, Op: "set", Err: err}
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
	return nil
}
