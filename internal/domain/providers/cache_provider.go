package providers

import (
	"context"
	"time"
)

// CacheProvider stores memoized engine results under string keys
type CacheProvider interface {
	// Get retrieves a value from cache. A miss returns a not-found error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob pattern
	DeletePattern(ctx context.Context, pattern string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}
