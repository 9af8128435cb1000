package cache

import (
	"context"
	"time"
)

// Scoped wraps a Cache and prefixes every key, so several registries or
// endpoints can share one backend without colliding.
//
//	modrinth := cache.NewScoped(backend, "modrinth:")
//	modrinth.Set(ctx, "projects:[\"sodium\"]", body, time.Hour)
//	// stored as "modrinth:projects:[\"sodium\"]"
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped returns a view of inner whose keys are prefixed with prefix.
// A nil inner is replaced by a [NullCache]. Scopes can be nested.
func NewScoped(inner Cache, prefix string) *Scoped {
	if inner == nil {
		inner = NewNullCache()
	}
	if s, ok := inner.(*Scoped); ok {
		return &Scoped{inner: s.inner, prefix: s.prefix + prefix}
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Prefix returns the full key prefix of this scope.
func (s *Scoped) Prefix() string { return s.prefix }

// Get retrieves a prefixed key from the underlying cache.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores a prefixed key in the underlying cache.
func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

// Delete removes a prefixed key from the underlying cache.
func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the underlying cache.
func (s *Scoped) Close() error {
	return s.inner.Close()
}

var _ Cache = (*Scoped)(nil)
