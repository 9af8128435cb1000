package download

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/modman/pkg/errors"
)

// partSuffix marks in-flight downloads inside the cache directory.
const partSuffix = ".part"

// Cache is a flat directory of previously fetched files, keyed by filename.
type Cache struct {
	dir string
}

// DefaultCacheDir returns <user cache dir>/modman/downloads.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "modman", "downloads"), nil
}

// NewCache opens the cache rooted at dir, creating it if needed. An empty
// dir selects [DefaultCacheDir].
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		d, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns where filename is stored in the cache. The filename is
// reduced to its base name first; names that are empty or refer to a
// directory are rejected.
func (c *Cache) Path(filename string) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.dir, name), nil
}

// Lookup returns the cached path of filename if a regular file is present.
func (c *Cache) Lookup(filename string) (string, bool) {
	path, err := c.Path(filename)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Remove deletes filename from the cache. Missing entries are not an error.
func (c *Cache) Remove(filename string) error {
	path, err := c.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every cached file, including abandoned partial downloads,
// and returns how many entries were removed.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var removed int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) partPath(path string) string {
	return path + partSuffix
}

func cleanFilename(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if err := errs.ValidateFilename(name); err != nil {
		return "", err
	}
	if strings.HasSuffix(name, partSuffix) {
		return "", errs.New(errs.ErrCodeInvalidFilename, "filename cannot end in %s: %q", partSuffix, name)
	}
	return name, nil
}
