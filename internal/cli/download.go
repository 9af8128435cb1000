package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modman/pkg/download"
	errs "github.com/matzehuels/modman/pkg/errors"
	"github.com/matzehuels/modman/pkg/integrations/modrinth"
)

// downloadCommand creates the "download" command.
func (c *CLI) downloadCommand() *cobra.Command {
	var (
		dest       string
		workers    int
		allFiles   bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "download <version-id>...",
		Short: "Download and verify version files",
		Long: `Download the primary file of each version into a directory.

Files are fetched into the download cache, checked against their published
sha1 digest and then moved into the destination. Existing files in the
destination are never overwritten.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, release := c.newRegistry(ctx)
			defer release()

			versions, err := client.FetchVersions(ctx, args, c.refresh)
			if err != nil {
				return err
			}
			warnMissingVersions(args, versions)

			files := selectFiles(versions, allFiles)
			if len(files) == 0 {
				return errs.New(errs.ErrCodeNotFound, "no files to download")
			}

			var progressFn download.ProgressFunc
			if !noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
				progressFn = progressFunc(ctx, os.Stderr)
			}
			mgr, err := c.newManager(workers, progressFn)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			report, err := mgr.Download(ctx, files, dest)
			printReport(report)
			if err != nil {
				return err
			}
			prog.done("download finished", "files", len(report.Paths), "dest", dest)
			c.Logger.Debug("transfer stats", "stats", c.Stats.Snapshot().String())

			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d files failed", len(failed), len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", ".", "destination directory")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent transfers (default from config)")
	cmd.Flags().BoolVar(&allFiles, "all-files", false, "download every file of a version, not just the primary one")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress display")

	return cmd
}

// selectFiles returns the download descriptors of versions, in order.
func selectFiles(versions []modrinth.Version, all bool) []download.File {
	var files []download.File
	for i := range versions {
		v := &versions[i]
		if all {
			for _, f := range v.Files {
				files = append(files, f.Descriptor())
			}
			continue
		}
		f, ok := v.PrimaryFile()
		if !ok {
			printWarning("Version %s has no files", v.ID)
			continue
		}
		files = append(files, f.Descriptor())
	}
	return files
}

// printReport lists where each file ended up and why the others did not.
func printReport(report *download.Report) {
	if report == nil {
		return
	}
	for _, o := range report.Outcomes {
		switch o.State {
		case download.StateMoved:
			printFile(o.Path, o.TaskID == "")
		case download.StateFailed:
			printError("%s: %s", o.File.Filename, errs.UserMessage(o.Err))
		}
	}
}
