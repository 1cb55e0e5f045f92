// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends to the pipeline stages. Consumers can
// register hooks at startup to receive events about normalization, generation,
// transcoding and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [PromHooks] is the bundled implementation. It records into a private
// Prometheus registry and writes a node-exporter textfile at the end of a
// batch run, which suits an offline pipeline that has no long-lived process
// to scrape.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := observability.NewPromHooks()
//	    observability.SetStageHooks(hooks)
//	    observability.SetCacheHooks(hooks)
//	    // ... run pipeline
//	    _ = hooks.WriteTextfile("layerpress.prom")
//	}
//
// Stages call hooks to emit events:
//
//	observability.Stage().OnStageStart(ctx, observability.StageNormalize)
//	// ... process files ...
//	observability.Stage().OnItem(ctx, observability.StageNormalize, "resized", duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names passed to StageHooks.
const (
	StageNormalize = "normalize"
	StageGenerate  = "generate"
	StageTranscode = "transcode"
)

// =============================================================================
// Stage Hooks
// =============================================================================

// StageHooks receives events from the pipeline stages.
type StageHooks interface {
	// OnStageStart fires when a stage begins.
	OnStageStart(ctx context.Context, stage string)

	// OnStageComplete fires when a stage ends, successfully or not.
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnItem fires once per processed file or record with its outcome name
	// ("copied", "resized", "fallback", "skipped", "converted", "failed").
	OnItem(ctx context.Context, stage, outcome string, duration time.Duration)
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
// No-op Implementations
// =============================================================================

// NoopStageHooks is a no-op implementation of StageHooks.
type NoopStageHooks struct{}

func (NoopStageHooks) OnStageStart(context.Context, string)                          {}
func (NoopStageHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopStageHooks) OnItem(context.Context, string, string, time.Duration)         {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	stageHooks StageHooks = NoopStageHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetStageHooks registers custom stage hooks. Callers that wrap the current
// hooks for a single run should restore the previous value afterwards.
func SetStageHooks(h StageHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		stageHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Stage returns the registered stage hooks.
func Stage() StageHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return stageHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	stageHooks = NoopStageHooks{}
	cacheHooks = NoopCacheHooks{}
}
