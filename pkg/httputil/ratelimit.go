package httputil

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// HeaderRateLimitRemaining carries the number of requests left in the
	// current window.
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"

	// HeaderRateLimitReset carries the number of seconds until the window
	// resets.
	HeaderRateLimitReset = "X-Ratelimit-Reset"

	// HeaderRetryAfter is the standard throttling header, honoured on 429.
	HeaderRetryAfter = "Retry-After"

	// InitialRemaining is the permissive budget assumed before the first
	// response has been seen.
	InitialRemaining = 500

	// fallbackRemaining is assumed when a response omits the remaining header.
	fallbackRemaining = 100
)

// RateLimit is a snapshot of the registry's rate limit window.
type RateLimit struct {
	Remaining int       // Requests left in the window
	Reset     time.Time // When the window resets; zero before the first response
}

// WaitObserver is told about rate limit cooldowns so it can display them.
// WaitFinished is always called once WaitStarted was, including when the
// wait is cancelled.
type WaitObserver interface {
	WaitStarted(total time.Duration)
	WaitTick(elapsed, total time.Duration)
	WaitFinished()
}

type noopObserver struct{}

func (noopObserver) WaitStarted(time.Duration)             {}
func (noopObserver) WaitTick(time.Duration, time.Duration) {}
func (noopObserver) WaitFinished()                         {}

// RateLimiterOptions configures a [RateLimiter]. All fields are optional.
type RateLimiterOptions struct {
	Observer WaitObserver
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// RateLimiter tracks the registry's rate limit headers and blocks callers
// while the window is exhausted. It is safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	state    RateLimit
	observer WaitObserver
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter returns a limiter in the permissive initial state
// (remaining = [InitialRemaining], no reset deadline).
func NewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	l := &RateLimiter{
		state:    RateLimit{Remaining: InitialRemaining},
		observer: opts.Observer,
		now:      opts.Now,
		sleep:    opts.Sleep,
	}
	if l.observer == nil {
		l.observer = noopObserver{}
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = sleepContext
	}
	return l
}

// State returns the current rate limit snapshot.
func (l *RateLimiter) State() RateLimit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Update overwrites the state from a response's headers. Missing or
// malformed headers fall back to remaining=100 and a reset of 0 seconds.
// The reset header is interpreted as seconds-to-wait and stored as an
// absolute deadline.
func (l *RateLimiter) Update(h http.Header) {
	remaining := headerInt(h, HeaderRateLimitRemaining, fallbackRemaining)
	reset := headerInt(h, HeaderRateLimitReset, 0)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = RateLimit{
		Remaining: remaining,
		Reset:     l.now().Add(time.Duration(reset) * time.Second),
	}
}

// Throttle records a 429 response. The window is marked exhausted and the
// reset deadline is taken from the reset header, or from Retry-After when
// that is larger, with a floor of one second so the next [RateLimiter.Wait]
// always pauses.
func (l *RateLimiter) Throttle(h http.Header) {
	reset := max(headerInt(h, HeaderRateLimitReset, 0), headerInt(h, HeaderRetryAfter, 0), 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = RateLimit{
		Remaining: 0,
		Reset:     l.now().Add(time.Duration(reset) * time.Second),
	}
}

// Wait blocks while the window is exhausted. When remaining is 0 it sleeps
// ceil(reset - now) seconds in one-second steps, reporting each step to the
// observer, and returns the total time waited. It returns immediately when
// requests remain or the deadline has already passed.
func (l *RateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	state := l.state
	now := l.now()
	l.mu.Unlock()

	if state.Remaining != 0 {
		return 0, nil
	}
	secs := int(math.Ceil(state.Reset.Sub(now).Seconds()))
	if secs <= 0 {
		return 0, nil
	}

	total := time.Duration(secs) * time.Second
	l.observer.WaitStarted(total)
	defer l.observer.WaitFinished()

	for i := 1; i <= secs; i++ {
		if err := l.sleep(ctx, time.Second); err != nil {
			return time.Duration(i-1) * time.Second, err
		}
		l.observer.WaitTick(time.Duration(i)*time.Second, total)
	}
	return total, nil
}

func headerInt(h http.Header, key string, fallback int) int {
	v := h.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Some registries send fractional seconds.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return fallback
		}
		return int(math.Ceil(f))
	}
	return n
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
