// Package cli implements the modman command-line interface.
package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modman/internal/config"
	"github.com/matzehuels/modman/pkg/buildinfo"
	"github.com/matzehuels/modman/pkg/cache"
	"github.com/matzehuels/modman/pkg/download"
	"github.com/matzehuels/modman/pkg/httputil"
	"github.com/matzehuels/modman/pkg/integrations"
	"github.com/matzehuels/modman/pkg/integrations/modrinth"
	"github.com/matzehuels/modman/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "modman"

	// maxRetryDelay caps the doubling pause between connection retries.
	maxRetryDelay = 4 * time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config
	Stats  *observability.Stats

	configPath string
	verbose    bool
	noCache    bool
	refresh    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		Stats:  &observability.Stats{},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               appName,
		Short:             "modman fetches and verifies Minecraft mods from Modrinth",
		Long:              `modman queries the Modrinth registry for projects and versions and downloads their files through a local, integrity-checked cache.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configPath, "config", "", "config file (default <config dir>/modman/config.toml)")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the metadata cache")
	flags.BoolVar(&c.refresh, "refresh", false, "bypass cached registry responses")

	root.AddCommand(c.projectCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.lookupCommand())
	root.AddCommand(c.downloadCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and applies the global flags on top of it.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}

	cfg, unknown, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	for _, key := range unknown {
		c.Logger.Warn("unknown config key", "key", key)
	}
	if c.noCache {
		cfg.MetadataCache.Backend = cache.BackendNone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Client Factories
// =============================================================================

// newRegistry creates a Modrinth client backed by the configured metadata
// cache. The returned func releases the cache and must always be called.
func (c *CLI) newRegistry(ctx context.Context) (*modrinth.Client, func()) {
	store := c.openMetadataCache(ctx)

	reg := c.Config.Registry
	httpClient := integrations.NewHTTPClient()
	if reg.Timeout > 0 {
		httpClient.Timeout = reg.Timeout
	}

	client := modrinth.NewClient(integrations.Options{
		BaseURL:    reg.BaseURL,
		UserAgent:  reg.UserAgent,
		HTTPClient: httpClient,
		Cache:      store,
		CacheTTL:   c.Config.MetadataCache.TTL,
		Logger:     c.Logger,
		Hooks:      c.Stats,
		CacheHooks: c.Stats,
		Observer:   newCooldown(c.Logger),
		Retry: httputil.Policy{
			Attempts: reg.RetryAttempts,
			Delay:    reg.RetryDelay,
			MaxDelay: maxRetryDelay,
		},
		MaxThrottleRetries: reg.MaxThrottleRetries,
	})

	release := func() {
		if err := store.Close(); err != nil {
			c.Logger.Debug("close metadata cache", "err", err)
		}
	}
	return client, release
}

// openMetadataCache opens the configured backend. A backend that cannot be
// reached degrades to no caching rather than failing the command.
func (c *CLI) openMetadataCache(ctx context.Context) cache.Cache {
	cfg := c.Config.CacheConfig()
	if cfg.Backend == "" || cfg.Backend == cache.BackendFile {
		if cfg.Dir == "" {
			dir, err := metadataDir()
			if err != nil {
				c.Logger.Warn("metadata cache disabled", "err", err)
				return cache.NewNullCache()
			}
			cfg.Dir = dir
		}
	}

	store, err := cache.Open(ctx, cfg)
	if err != nil {
		c.Logger.Warn("metadata cache disabled", "backend", cfg.Backend, "err", err)
		return cache.NewNullCache()
	}
	c.Logger.Debug("metadata cache", "backend", cfg.Backend)
	return store
}

// newManager creates a download manager. workers overrides the configured
// worker count when positive.
func (c *CLI) newManager(workers int, progress download.ProgressFunc) (*download.Manager, error) {
	store, err := download.NewCache(c.Config.Download.CacheDir)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = c.Config.Download.Workers
	}
	return download.NewManager(download.Options{
		Cache:      store,
		HTTPClient: transferClient(),
		Workers:    workers,
		Logger:     c.Logger,
		Hooks:      c.Stats,
		Progress:   progress,
		UserAgent:  c.Config.Registry.UserAgent,
	})
}

// transferClient follows redirects like the registry client but leaves the
// deadline to the command context, since files can be large.
func transferClient() *http.Client {
	client := integrations.NewHTTPClient()
	client.Timeout = 0
	return client
}

// =============================================================================
// Paths
// =============================================================================

// metadataDir returns the default file backend directory for registry responses.
func metadataDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "metadata"), nil
}
