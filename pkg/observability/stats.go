package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Stats counts events from every hook category using atomic counters.
// The zero value is ready to use and safe for concurrent use.
type Stats struct {
	requests  atomic.Int64
	responses atomic.Int64
	httpErrs  atomic.Int64
	throttles atomic.Int64
	waited    atomic.Int64 // nanoseconds

	metaHits   atomic.Int64
	metaMisses atomic.Int64

	fileHits    atomic.Int64
	fileMisses  atomic.Int64
	fetched     atomic.Int64
	fetchFailed atomic.Int64
	bytes       atomic.Int64
	verifyFail  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of [Stats].
type StatsSnapshot struct {
	Requests      int64
	Responses     int64
	HTTPErrors    int64
	Throttles     int64
	ThrottleWait  time.Duration
	MetaCacheHits int64
	MetaCacheMiss int64
	FileCacheHits int64
	FileCacheMiss int64
	Fetched       int64
	FetchFailed   int64
	Bytes         int64
	VerifyFailed  int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests:      s.requests.Load(),
		Responses:     s.responses.Load(),
		HTTPErrors:    s.httpErrs.Load(),
		Throttles:     s.throttles.Load(),
		ThrottleWait:  time.Duration(s.waited.Load()),
		MetaCacheHits: s.metaHits.Load(),
		MetaCacheMiss: s.metaMisses.Load(),
		FileCacheHits: s.fileHits.Load(),
		FileCacheMiss: s.fileMisses.Load(),
		Fetched:       s.fetched.Load(),
		FetchFailed:   s.fetchFailed.Load(),
		Bytes:         s.bytes.Load(),
		VerifyFailed:  s.verifyFail.Load(),
	}
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("%d requests, %d cached, %d fetched (%d bytes), %d failed",
		s.Requests, s.FileCacheHits, s.Fetched, s.Bytes, s.FetchFailed+s.VerifyFailed)
}

func (s *Stats) OnRequest(context.Context, string, string, string) { s.requests.Add(1) }

func (s *Stats) OnResponse(context.Context, string, string, string, int, time.Duration) {
	s.responses.Add(1)
}

func (s *Stats) OnError(context.Context, string, string, string, error) { s.httpErrs.Add(1) }

func (s *Stats) OnThrottle(_ context.Context, _ string, wait time.Duration) {
	s.throttles.Add(1)
	s.waited.Add(int64(wait))
}

func (s *Stats) OnCacheHit(context.Context, string)      { s.metaHits.Add(1) }
func (s *Stats) OnCacheMiss(context.Context, string)     { s.metaMisses.Add(1) }
func (s *Stats) OnCacheSet(context.Context, string, int) {}

func (s *Stats) OnFileCacheHit(context.Context, string)  { s.fileHits.Add(1) }
func (s *Stats) OnFileCacheMiss(context.Context, string) { s.fileMisses.Add(1) }

func (s *Stats) OnFetchComplete(_ context.Context, _ string, n int64, _ time.Duration, err error) {
	if err != nil {
		s.fetchFailed.Add(1)
		return
	}
	s.fetched.Add(1)
	s.bytes.Add(n)
}

func (s *Stats) OnVerify(_ context.Context, _ string, ok bool) {
	if !ok {
		s.verifyFail.Add(1)
	}
}

var (
	_ HTTPHooks     = (*Stats)(nil)
	_ CacheHooks    = (*Stats)(nil)
	_ DownloadHooks = (*Stats)(nil)
)
