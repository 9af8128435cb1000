// Package errors provides structured error types for the modman application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes are grouped by the layer that produces them:
//   - CONNECTION_ERROR, HTTP_STATUS, RATE_LIMITED: registry transport
//   - NOT_FOUND, PARSE_ERROR: registry records
//   - INTEGRITY_MISMATCH: download verification
//   - INVALID_*: input validation failures
//   - INTERNAL_ERROR: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid project id: %s", id)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeConnection, origErr, "GET %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFilename Code = "INVALID_FILENAME"
	ErrCodeInvalidHash     Code = "INVALID_HASH"

	// Registry errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeConnection  Code = "CONNECTION_ERROR"
	ErrCodeHTTPStatus  Code = "HTTP_STATUS"
	ErrCodeRateLimited Code = "RATE_LIMITED"
	ErrCodeParse       Code = "PARSE_ERROR"

	// Download errors
	ErrCodeIntegrity Code = "INTEGRITY_MISMATCH"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by typed errors in other packages that carry a code
// without being an *Error (e.g. status or integrity errors).
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error
// with a matching code.
func Is(err error, code Code) bool {
	for err != nil {
		if c := codeOf(err); c == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		if c := codeOf(err); c != "" {
			return c
		}
		err = errors.Unwrap(err)
	}
	return ""
}

func codeOf(err error) Code {
	switch e := err.(type) {
	case *Error:
		return e.Code
	case coder:
		return e.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// RateLimitedError is returned when the registry keeps answering 429 after
// the client exhausted its throttle retries.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Attempts   int // Number of throttled responses received
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
