// Package cache provides storage for rendered graph artifacts.
//
// Layout computation is expensive relative to how often the same document is
// rendered, so rendered SVG output is cached keyed by a hash of the source
// text and the layout engine. Implementations:
//
//   - FileCache: per-user on-disk cache for CLI usage
//   - RedisCache: shared cache for server deployments
//   - NullCache: disabled caching
//
// All implementations are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long cached render artifacts remain valid.
// Rendering is deterministic for a given Graphviz build, so the TTL mainly
// bounds disk usage rather than staleness.
const DefaultTTL = 7 * 24 * time.Hour

// Cache stores rendered artifacts by key.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given time-to-live.
	// A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// NullCache is a no-op cache that never stores anything.
// Useful for testing or when caching should be disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)
