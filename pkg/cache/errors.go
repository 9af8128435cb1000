package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrNoDirectory is returned by [NewFileCache] when no directory is given.
	ErrNoDirectory = errors.New("cache: no directory configured")

	// ErrNoAddress is returned by remote backends when no address or URI is
	// configured.
	ErrNoAddress = errors.New("cache: no server address configured")
)
