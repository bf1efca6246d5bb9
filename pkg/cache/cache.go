// Package cache provides the caching layer used by record sources and the
// render pipeline.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry below a directory; the CLI default
//   - [RedisCache]: a shared Redis instance, used by `docktree serve`
//   - [NullCache]: never stores anything; used for --no-cache
//
// # Keys
//
// Keys are built by a [Keyer] so every component derives them the same way.
// [DefaultKeyer] hashes the inputs that determine a value; [ScopedKeyer]
// adds a namespace prefix, for example to separate several engines or hosts
// sharing one Redis.
//
// # Retries
//
// [RetryWithBackoff] retries an operation whose error was marked with
// [Retryable]. It is used by the cached source around slow or flaky
// record producers.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); an error means the backend
// itself failed. A zero ttl passed to Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Clear removes every entry from c if the backend supports it.
// Backends without bulk removal return nil.
func Clear(ctx context.Context, c Cache) error {
	if cl, ok := c.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}

// Key types reported to observability hooks.
const (
	KeyTypeRecords = "records"
	KeyTypeRender  = "render"
)

// Default TTLs.
const (
	// RecordsTTL bounds how stale a cached record list may get. Local image
	// stores change whenever something is pulled or built.
	RecordsTTL = 10 * time.Minute

	// RenderTTL applies to rendered output keyed by the record hash. Those
	// keys change whenever the records do, so a long TTL is safe.
	RenderTTL = 24 * time.Hour
)
