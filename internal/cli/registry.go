package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modman/pkg/integrations/modrinth"
)

// projectCommand creates the "project" command.
func (c *CLI) projectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "project <id|slug>...",
		Short: "Show projects by id or slug",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, release := c.newRegistry(ctx)
			defer release()

			projects, err := client.FetchProjects(ctx, args, c.refresh)
			if err != nil {
				return err
			}
			for _, id := range args {
				if !anyRelated(projects, id) {
					printWarning("Project not found: %s", id)
				}
			}
			if len(projects) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.Slug,
					p.Title,
					p.ProjectType,
					formatCount(p.Downloads),
					formatList(p.Loaders),
					p.ID,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Slug", "Title", "Type", "Downloads", "Loaders", "ID"}, rows)
			return nil
		},
	}
}

func anyRelated(projects []modrinth.Project, target string) bool {
	for i := range projects {
		if projects[i].Related(target) {
			return true
		}
	}
	return false
}

// versionCommand creates the "version" command.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version <id>...",
		Short: "Show versions and their files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, release := c.newRegistry(ctx)
			defer release()

			versions, err := client.FetchVersions(ctx, args, c.refresh)
			if err != nil {
				return err
			}
			warnMissingVersions(args, versions)

			out := cmd.OutOrStdout()
			for i := range versions {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printVersion(out, &versions[i])
			}
			return nil
		},
	}
}

// versionsCommand creates the "versions" command.
func (c *CLI) versionsCommand() *cobra.Command {
	var (
		loaders      []string
		gameVersions []string
		featured     bool
	)

	cmd := &cobra.Command{
		Use:   "versions <id|slug>",
		Short: "List the versions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, release := c.newRegistry(ctx)
			defer release()

			filter := modrinth.VersionFilter{Loaders: loaders, GameVersions: gameVersions}
			if cmd.Flags().Changed("featured") {
				filter.Featured = &featured
			}

			versions, err := client.FetchProjectVersions(ctx, args[0], filter, c.refresh)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				printInfo("No versions match")
				return nil
			}

			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []string{
					v.VersionNumber,
					v.Name,
					v.VersionType,
					formatList(v.Loaders),
					formatList(v.GameVersions),
					v.DatePublished.Format("2006-01-02"),
					v.ID,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Version", "Name", "Type", "Loaders", "Game Versions", "Published", "ID"}, rows)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&loaders, "loader", nil, "only versions for these loaders (e.g. fabric,forge)")
	cmd.Flags().StringSliceVar(&gameVersions, "game-version", nil, "only versions for these game versions (e.g. 1.20.1)")
	cmd.Flags().BoolVar(&featured, "featured", false, "only featured versions (--featured=false for non-featured)")
	completeFlag(cmd, "loader", knownLoaders)

	return cmd
}

func warnMissingVersions(ids []string, versions []modrinth.Version) {
	found := make(map[string]bool, len(versions))
	for _, v := range versions {
		found[v.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			printWarning("Version not found: %s", id)
		}
	}
}

// printVersion writes the details of v followed by a table of its files.
func printVersion(w io.Writer, v *modrinth.Version) {
	fmt.Fprintln(w, StyleTitle.Render(v.Name)+" "+StyleDim.Render(v.ID))
	printKeyValue(w, "Version", v.VersionNumber)
	printKeyValue(w, "Project", v.ProjectID)
	printKeyValue(w, "Type", v.VersionType)
	printKeyValue(w, "Loaders", formatList(v.Loaders))
	printKeyValue(w, "Game versions", formatList(v.GameVersions))
	printKeyValue(w, "Published", v.DatePublished.Format("2006-01-02 15:04"))
	if deps := requiredDependencies(v); len(deps) > 0 {
		printKeyValue(w, "Requires", strings.Join(deps, ", "))
	}

	if len(v.Files) == 0 {
		return
	}
	rows := make([][]string, 0, len(v.Files))
	for _, f := range v.Files {
		primary := ""
		if f.Primary {
			primary = iconSuccess
		}
		rows = append(rows, []string{f.Filename, formatBytes(f.Size), primary, f.Hashes.SHA1})
	}
	printTable(w, []string{"File", "Size", "Primary", "SHA1"}, rows)
}

func requiredDependencies(v *modrinth.Version) []string {
	var out []string
	for _, d := range v.Dependencies {
		if d.DependencyType != modrinth.DependencyRequired {
			continue
		}
		switch {
		case d.ProjectID != "":
			out = append(out, d.ProjectID)
		case d.VersionID != "":
			out = append(out, d.VersionID)
		case d.FileName != "":
			out = append(out, d.FileName)
		}
	}
	return out
}
