// Package cache provides byte-oriented caching backends for registry responses.
//
// Three implementations are available:
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache backed by a Redis server
//   - [NullCache]: stores nothing, used with --no-cache and in tests
//
// Keys are arbitrary strings; callers namespace them (e.g. "crates:serde").
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface used by registry clients.
type Cache interface {
	// Get returns the stored bytes and true on a hit.
	// A miss is (nil, false, nil); expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
