package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modman/pkg/cache"
	"github.com/matzehuels/modman/pkg/download"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download and metadata caches",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var downloadsOnly, metadataOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached files and registry responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !metadataOnly {
				store, err := download.NewCache(c.Config.Download.CacheDir)
				if err != nil {
					return fmt.Errorf("open download cache: %w", err)
				}
				n, err := store.Clear()
				if err != nil {
					return err
				}
				printSuccess("Cleared %d downloaded files", n)
				printDetail("Directory: %s", store.Dir())
			}

			if downloadsOnly {
				return nil
			}
			dir, ok, err := c.metadataCacheDir()
			if err != nil {
				return err
			}
			if !ok {
				printInfo("Metadata cache backend %q expires entries after %s", c.Config.MetadataCache.Backend, c.Config.MetadataCache.TTL)
				return nil
			}
			n, err := clearDir(dir)
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached responses", n)
			printDetail("Directory: %s", dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&downloadsOnly, "downloads", false, "only clear downloaded files")
	cmd.Flags().BoolVar(&metadataOnly, "metadata", false, "only clear registry responses")
	cmd.MarkFlagsMutuallyExclusive("downloads", "metadata")

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			downloads := c.Config.Download.CacheDir
			if downloads == "" {
				dir, err := download.DefaultCacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				downloads = dir
			}

			out := cmd.OutOrStdout()
			printKeyValue(out, "downloads", downloads)
			if dir, ok, err := c.metadataCacheDir(); err != nil {
				return err
			} else if ok {
				printKeyValue(out, "metadata", dir)
			} else {
				printKeyValue(out, "metadata", c.Config.MetadataCache.Backend)
			}
			return nil
		},
	}
}

// metadataCacheDir returns the file backend directory. ok is false for the
// other backends.
func (c *CLI) metadataCacheDir() (dir string, ok bool, err error) {
	backend := c.Config.MetadataCache.Backend
	if backend != "" && backend != cache.BackendFile {
		return "", false, nil
	}
	if dir = c.Config.MetadataCache.Dir; dir != "" {
		return dir, true, nil
	}
	dir, err = metadataDir()
	if err != nil {
		return "", false, fmt.Errorf("get cache dir: %w", err)
	}
	return dir, true, nil
}

// clearDir removes every file below dir and then the emptied subdirectories.
// A missing dir counts as empty.
func clearDir(dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	count := 0
	var subdirs []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == dir {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() {
			subdirs = append(subdirs, path)
			return nil
		}
		if err := os.Remove(path); err == nil {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	// Deepest first so parents are empty by the time they are removed.
	for i := len(subdirs) - 1; i >= 0; i-- {
		_ = os.Remove(subdirs[i])
	}
	return count, nil
}
