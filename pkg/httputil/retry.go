package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (refused connections, resets, timeouts) with this
// type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err (or anything it wraps) is a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy controls how [Retry] repeats a failing operation.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 are treated as 1.
	Attempts int

	// Delay is the pause before the second attempt. It doubles after each
	// further failure. Zero retries immediately.
	Delay time.Duration

	// MaxDelay caps the doubled delay. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy retries connection failures five times with a short,
// doubling pause.
func DefaultPolicy() Policy {
	return Policy{Attempts: 5, Delay: 250 * time.Millisecond, MaxDelay: 4 * time.Second}
}

// ExhaustedError is returned by [Retry] when every attempt failed with a
// retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string { return e.Err.Error() }
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. The attempt number (starting at 1) is passed
// to fn. Non-retryable errors are returned unchanged; exhaustion returns an
// [*ExhaustedError] wrapping the last error; cancellation returns ctx.Err().
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(i + 1); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
				if p.MaxDelay > 0 && delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}
