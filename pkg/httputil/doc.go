// Package httputil provides HTTP utilities for the registry client.
//
// # Overview
//
//   - [Retry]: repeat an operation on connection-level failures
//   - [RateLimiter]: track the registry's rate limit window and block while
//     it is exhausted
//
// # Retry
//
// [Retry] only repeats errors wrapped with [Retryable]; anything else is
// returned on the spot. When every attempt fails it returns an
// [*ExhaustedError] carrying the attempt count:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy(), func(attempt int) error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// # Rate Limiting
//
// [RateLimiter] starts permissive (500 requests remaining) and is updated
// from the X-Ratelimit-Remaining and X-Ratelimit-Reset headers of every
// response. When the remaining budget reaches zero, [RateLimiter.Wait]
// sleeps until the window resets, one second at a time, reporting progress
// to a [WaitObserver].
package httputil
