// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional: the packages that do the work call the
// registered hooks, and a binary that wants metrics or traces registers its
// own implementations at startup. Without registration every hook is a
// no-op.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPatchHooks(&myPatchHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Patch().OnStageStart(ctx, observability.StageResolve, "serde")
//	// ... resolve ...
//	observability.Patch().OnStageComplete(ctx, observability.StageResolve, "serde", time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names a step of the patch pipeline.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageSync    Stage = "sync"
	StageLocate  Stage = "locate"
	StageConfig  Stage = "config"
)

// =============================================================================
// Patch Hooks
// =============================================================================

// PatchHooks receives events from the patch pipeline.
type PatchHooks interface {
	OnStageStart(ctx context.Context, stage Stage, crate string)
	OnStageComplete(ctx context.Context, stage Stage, crate string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, key string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPatchHooks is a no-op implementation of PatchHooks.
type NoopPatchHooks struct{}

func (NoopPatchHooks) OnStageStart(context.Context, Stage, string)                           {}
func (NoopPatchHooks) OnStageComplete(context.Context, Stage, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// slot holds the registered implementation of one hook interface.
type slot[T any] struct {
	mu   sync.RWMutex
	cur  T
	noop T
}

func newSlot[T any](noop T) *slot[T] {
	return &slot[T]{cur: noop, noop: noop}
}

// set installs h and returns a func restoring the previous hooks. A nil h
// is ignored.
func (s *slot[T]) set(h T) func() {
	if any(h) == nil {
		return func() {}
	}
	s.mu.Lock()
	prev := s.cur
	s.cur = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.cur = prev
		s.mu.Unlock()
	}
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = s.noop
	s.mu.Unlock()
}

var (
	patchHooks = newSlot[PatchHooks](NoopPatchHooks{})
	cacheHooks = newSlot[CacheHooks](NoopCacheHooks{})
	httpHooks  = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetPatchHooks registers pipeline hooks. The returned func restores the
// hooks that were registered before.
func SetPatchHooks(h PatchHooks) (restore func()) { return patchHooks.set(h) }

// SetCacheHooks registers cache hooks. See SetPatchHooks.
func SetCacheHooks(h CacheHooks) (restore func()) { return cacheHooks.set(h) }

// SetHTTPHooks registers registry HTTP hooks. See SetPatchHooks.
func SetHTTPHooks(h HTTPHooks) (restore func()) { return httpHooks.set(h) }

// Patch returns the registered pipeline hooks.
func Patch() PatchHooks { return patchHooks.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheHooks.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpHooks.get() }

// Reset restores all hooks to their no-op defaults.
func Reset() {
	patchHooks.reset()
	cacheHooks.reset()
	httpHooks.reset()
}
