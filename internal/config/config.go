// Package config loads modman's TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/modman/config.toml (or the platform
// equivalent from os.UserConfigDir). A missing file yields [Default].
// Environment variables override the file, and command-line flags override
// both; flags are applied by the CLI.
//
//	[registry]
//	base_url = "https://api.modrinth.com/v2"
//	timeout = "30s"
//	retry_attempts = 5
//
//	[download]
//	workers = 3
//
//	[metadata_cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/modman/pkg/cache"
	"github.com/matzehuels/modman/pkg/download"
	"github.com/matzehuels/modman/pkg/integrations"
	"github.com/matzehuels/modman/pkg/integrations/modrinth"
)

// Environment variables read by [Load].
const (
	EnvBaseURL       = "MODMAN_BASE_URL"
	EnvWorkers       = "MODMAN_WORKERS"
	EnvCacheDir      = "MODMAN_CACHE_DIR"
	EnvMetadataCache = "MODMAN_METADATA_CACHE"
)

// Config is the complete configuration.
type Config struct {
	Registry      RegistryConfig      `toml:"registry"`
	Download      DownloadConfig      `toml:"download"`
	MetadataCache MetadataCacheConfig `toml:"metadata_cache"`
}

// RegistryConfig configures the registry client.
type RegistryConfig struct {
	BaseURL            string        `toml:"base_url"`
	UserAgent          string        `toml:"user_agent"`
	Timeout            time.Duration `toml:"timeout"`
	RetryAttempts      int           `toml:"retry_attempts"`
	RetryDelay         time.Duration `toml:"retry_delay"`
	MaxThrottleRetries int           `toml:"max_throttle_retries"`
}

// DownloadConfig configures the download manager.
type DownloadConfig struct {
	Workers  int    `toml:"workers"`
	CacheDir string `toml:"cache_dir"`
}

// MetadataCacheConfig selects the backend caching registry responses.
type MetadataCacheConfig struct {
	Backend string        `toml:"backend"` // file, redis, mongo or none
	TTL     time.Duration `toml:"ttl"`
	Dir     string        `toml:"dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Default returns a Config with sensible defaults. Directory fields are
// left empty and resolved by the components that use them.
func Default() Config {
	return Config{
		Registry: RegistryConfig{
			BaseURL:            modrinth.DefaultBaseURL,
			Timeout:            30 * time.Second,
			RetryAttempts:      5,
			RetryDelay:         250 * time.Millisecond,
			MaxThrottleRetries: integrations.DefaultMaxThrottleRetries,
		},
		Download: DownloadConfig{
			Workers: download.DefaultWorkers,
		},
		MetadataCache: MetadataCacheConfig{
			Backend:         cache.BackendFile,
			TTL:             time.Hour,
			MongoDatabase:   cache.DefaultMongoDatabase,
			MongoCollection: cache.DefaultMongoCollection,
		},
	}
}

// DefaultPath returns <user config dir>/modman/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "modman", "config.toml"), nil
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path means [DefaultPath]; a missing default file is
// not an error, but a missing explicit path is. Keys the file sets that
// modman does not know are returned in unknown.
func Load(path string) (cfg Config, unknown []string, err error) {
	cfg = Default()

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			path = ""
		}
	}

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
			for _, k := range md.Undecoded() {
				unknown = append(unknown, k.String())
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, nil, err
	}
	return cfg, unknown, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Registry.BaseURL = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Download.Workers = n
	}
	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		c.Download.CacheDir = v
	}
	if v, ok := lookup(EnvMetadataCache); ok && v != "" {
		c.MetadataCache.Backend = strings.ToLower(v)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Registry.BaseURL, "http://") && !strings.HasPrefix(c.Registry.BaseURL, "https://") {
		return fmt.Errorf("registry.base_url must be an http(s) URL, got %q", c.Registry.BaseURL)
	}
	if c.Registry.RetryAttempts < 1 {
		return fmt.Errorf("registry.retry_attempts must be at least 1, got %d", c.Registry.RetryAttempts)
	}
	if c.Registry.MaxThrottleRetries < 0 {
		return fmt.Errorf("registry.max_throttle_retries must not be negative")
	}
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("registry.timeout must not be negative")
	}
	if c.Download.Workers < 1 {
		return fmt.Errorf("download.workers must be at least 1, got %d", c.Download.Workers)
	}
	switch c.MetadataCache.Backend {
	case cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.MetadataCache.RedisAddr == "" {
			return fmt.Errorf("metadata_cache.redis_addr is required for the redis backend")
		}
	case cache.BackendMongo:
		if c.MetadataCache.MongoURI == "" {
			return fmt.Errorf("metadata_cache.mongo_uri is required for the mongo backend")
		}
	default:
		return fmt.Errorf("metadata_cache.backend must be file, redis, mongo or none, got %q", c.MetadataCache.Backend)
	}
	return nil
}

// CacheConfig converts the metadata cache section for [cache.Open].
func (c Config) CacheConfig() cache.Config {
	m := c.MetadataCache
	return cache.Config{
		Backend:         m.Backend,
		Dir:             m.Dir,
		RedisAddr:       m.RedisAddr,
		RedisPassword:   m.RedisPassword,
		RedisDB:         m.RedisDB,
		MongoURI:        m.MongoURI,
		MongoDatabase:   m.MongoDatabase,
		MongoCollection: m.MongoCollection,
	}
}
