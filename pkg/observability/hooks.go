// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Hooks are injected through the options of
// the component that emits them; there is no global registry, so two clients in
// one process can report to different sinks.
//
// # Usage
//
//	stats := &observability.Stats{}
//	client := integrations.NewClient(integrations.Options{HTTPHooks: stats})
//	mgr := download.NewManager(download.Options{Hooks: stats})
//	// ... run
//	fmt.Println(stats.Snapshot())
//
// Components fall back to the Noop implementations when no hooks are given.
package observability

import (
	"context"
	"time"
)

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from registry HTTP calls.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)

	// OnThrottle records a pause caused by rate limiting.
	OnThrottle(ctx context.Context, host string, wait time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the metadata response cache.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Download Hooks
// =============================================================================

// DownloadHooks receives events from the download manager.
type DownloadHooks interface {
	// OnFileCacheHit records a file served from the download cache.
	OnFileCacheHit(ctx context.Context, filename string)

	// OnFileCacheMiss records a file that must be fetched.
	OnFileCacheMiss(ctx context.Context, filename string)

	// OnFetchComplete records the end of a transfer. err is nil on success.
	OnFetchComplete(ctx context.Context, filename string, bytes int64, duration time.Duration, err error)

	// OnVerify records the result of an integrity check.
	OnVerify(ctx context.Context, filename string, ok bool)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}
func (NoopHTTPHooks) OnThrottle(context.Context, string, time.Duration)                      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopDownloadHooks is a no-op implementation of DownloadHooks.
type NoopDownloadHooks struct{}

func (NoopDownloadHooks) OnFileCacheHit(context.Context, string)                               {}
func (NoopDownloadHooks) OnFileCacheMiss(context.Context, string)                              {}
func (NoopDownloadHooks) OnFetchComplete(context.Context, string, int64, time.Duration, error) {}
func (NoopDownloadHooks) OnVerify(context.Context, string, bool)                               {}

var (
	_ HTTPHooks     = NoopHTTPHooks{}
	_ CacheHooks    = NoopCacheHooks{}
	_ DownloadHooks = NoopDownloadHooks{}
)
