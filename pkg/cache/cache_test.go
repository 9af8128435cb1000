package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCachePath(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	p1, p2 := c.path("modrinth:projects:[\"a\"]"), c.path("modrinth:projects:[\"a\"]")
	if p1 != p2 {
		t.Error("path should be deterministic")
	}
	if p3 := c.path("modrinth:projects:[\"b\"]"); p3 == p1 {
		t.Error("different keys should map to different paths")
	}

	rel, err := filepath.Rel(c.Dir(), p1)
	if err != nil {
		t.Fatal(err)
	}
	dir, file := filepath.Split(rel)
	if len(dir) != 3 || len(file) != 62+len(".json") {
		t.Errorf("path layout = %q, want 2-char dir and 62-char file name", rel)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "projects:sodium"); err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "projects:sodium", []byte(`[{"id":"AANobbMI"}]`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "projects:sodium")
	if err != nil || !hit {
		t.Fatalf("Get after Set = hit %v, err %v", hit, err)
	}
	if string(data) != `[{"id":"AANobbMI"}]` {
		t.Errorf("Get data = %q", data)
	}

	if err := c.Delete(ctx, "projects:sodium"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "projects:sodium"); hit {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "projects:sodium"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned as hit")
	}

	// Zero TTL never expires.
	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without TTL should be a hit")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	path := c.path("broken")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, hit, err := c.Get(ctx, "broken")
	if err != nil || hit {
		t.Fatalf("corrupt entry: hit %v, err %v", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestNewFileCacheRequiresDir(t *testing.T) {
	if _, err := NewFileCache(""); !errors.Is(err, ErrNoDirectory) {
		t.Errorf("NewFileCache(\"\") error = %v, want ErrNoDirectory", err)
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	scoped := NewScoped(inner, "modrinth:")
	if err := scoped.Set(ctx, "version:abc", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := inner.Get(ctx, "modrinth:version:abc"); !hit {
		t.Error("scoped key should be stored with prefix")
	}
	if _, hit, _ := inner.Get(ctx, "version:abc"); hit {
		t.Error("unprefixed key should not exist")
	}

	nested := NewScoped(scoped, "v2:")
	if got := nested.Prefix(); got != "modrinth:v2:" {
		t.Errorf("nested prefix = %q", got)
	}
}

func TestScopedNilInner(t *testing.T) {
	s := NewScoped(nil, "p:")
	if err := s.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := s.Get(context.Background(), "k"); hit {
		t.Error("nil inner should behave like NullCache")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, Config{Backend: BackendFile, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := c.(*FileCache); !ok {
		t.Errorf("Open file = %T", c)
	}

	c, err = Open(ctx, Config{Backend: BackendNone})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if _, ok := c.(NullCache); !ok {
		t.Errorf("Open none = %T", c)
	}

	if _, err := Open(ctx, Config{Backend: "memcached"}); err == nil {
		t.Error("unknown backend should fail")
	}
	if _, err := Open(ctx, Config{Backend: BackendRedis}); !errors.Is(err, ErrNoAddress) {
		t.Errorf("redis without address: %v", err)
	}
	if _, err := Open(ctx, Config{Backend: BackendMongo}); !errors.Is(err, ErrNoAddress) {
		t.Errorf("mongo without uri: %v", err)
	}
}
