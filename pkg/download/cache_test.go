package download

import (
	"os"
	"path/filepath"
	"testing"

	errs "github.com/matzehuels/modman/pkg/errors"
)

func TestNewCacheCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	c, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("cache dir not created: %v", err)
	}
}

func TestCachePath(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "sodium-0.5.8.jar", "sodium-0.5.8.jar", false},
		{"strips directories", "../../etc/sodium.jar", "sodium.jar", false},
		{"strips windows directories", `mods\sodium.jar`, "sodium.jar", false},
		{"empty", "", "", true},
		{"dot dot", "..", "", true},
		{"part suffix", "sodium.jar.part", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Path(tt.in)
			if tt.wantErr {
				if !errs.Is(err, errs.ErrCodeInvalidFilename) {
					t.Errorf("Path(%q) error = %v, want INVALID_FILENAME", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Path(%q) error: %v", tt.in, err)
			}
			if got != filepath.Join(c.Dir(), tt.want) {
				t.Errorf("Path(%q) = %q", tt.in, got)
			}
		})
	}
}

func TestCacheLookupRemoveClear(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Lookup("a.jar"); ok {
		t.Error("Lookup on empty cache should miss")
	}

	path, _ := c.Path("a.jar")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.partPath(filepath.Join(c.Dir(), "b.jar")), []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(c.Dir(), "c.jar"), 0755); err != nil {
		t.Fatal(err)
	}

	if got, ok := c.Lookup("a.jar"); !ok || got != path {
		t.Errorf("Lookup(a.jar) = %q, %v", got, ok)
	}
	if _, ok := c.Lookup("b.jar"); ok {
		t.Error("partial download must not be a cache hit")
	}
	if _, ok := c.Lookup("c.jar"); ok {
		t.Error("directory must not be a cache hit")
	}

	if err := c.Remove("a.jar"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := c.Lookup("a.jar"); ok {
		t.Error("entry still present after Remove")
	}
	if err := c.Remove("a.jar"); err != nil {
		t.Errorf("Remove of missing entry: %v", err)
	}

	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d entries, want 2 (a.jar and b.jar.part)", n)
	}
}
