// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in docktree report events through small hook interfaces instead
// of depending on a metrics backend. The defaults do nothing; a binary that
// wants counters or traces registers its own implementations at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetForestHooks(&myForestHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Forest().OnLoadStart(ctx, src.Name())
//	records, err := src.Records(ctx)
//	observability.Forest().OnLoadComplete(ctx, src.Name(), len(records), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Forest Hooks
// =============================================================================

// ForestHooks receives events from the load → build → prune → render pipeline.
type ForestHooks interface {
	// Load events (record sources)
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, records int, duration time.Duration, err error)

	// Build events
	OnBuild(ctx context.Context, layers, heads int, duration time.Duration, err error)

	// OnPrune reports how many untagged layers were removed.
	OnPrune(ctx context.Context, before, after int)

	// Render events
	OnRenderStart(ctx context.Context, format string)
	OnRenderComplete(ctx context.Context, format string, bytes int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the HTTP API.
type ServerHooks interface {
	// OnRequest records a served request once the response is written.
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopForestHooks is a no-op implementation of ForestHooks.
type NoopForestHooks struct{}

func (NoopForestHooks) OnLoadStart(context.Context, string)                                 {}
func (NoopForestHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)   {}
func (NoopForestHooks) OnBuild(context.Context, int, int, time.Duration, error)             {}
func (NoopForestHooks) OnPrune(context.Context, int, int)                                   {}
func (NoopForestHooks) OnRenderStart(context.Context, string)                               {}
func (NoopForestHooks) OnRenderComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	forestHooks ForestHooks = NoopForestHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	serverHooks ServerHooks = NoopServerHooks{}
	hooksMu     sync.RWMutex
)

// SetForestHooks registers custom forest pipeline hooks.
// Call once at startup before any pipeline runs. Nil is ignored.
func SetForestHooks(h ForestHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		forestHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom HTTP API hooks. Nil is ignored.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Forest returns the registered forest pipeline hooks.
func Forest() ForestHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return forestHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered HTTP API hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	forestHooks = NoopForestHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
