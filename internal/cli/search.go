package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modman/pkg/integrations/modrinth"
	"github.com/matzehuels/modman/pkg/integrity"
)

// searchCommand creates the "search" command.
func (c *CLI) searchCommand() *cobra.Command {
	opts := modrinth.SearchOptions{}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, release := c.newRegistry(ctx)
			defer release()

			opts.Query = strings.Join(args, " ")
			page, err := client.Search(ctx, opts)
			if err != nil {
				return err
			}
			if len(page.Hits) == 0 {
				printInfo("No projects match")
				return nil
			}

			rows := make([][]string, 0, len(page.Hits))
			for _, h := range page.Hits {
				rows = append(rows, []string{
					h.Slug,
					h.Title,
					h.ProjectType,
					formatCount(h.Downloads),
					h.Author,
				})
			}
			out := cmd.OutOrStdout()
			printTable(out, []string{"Slug", "Title", "Type", "Downloads", "Author"}, rows)
			fmt.Fprintln(out, StyleDim.Render(fmt.Sprintf("%d-%d of %d", page.Offset+1, page.Offset+len(page.Hits), page.TotalHits)))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "results per page (1-100)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "results to skip")
	cmd.Flags().StringVar(&opts.Index, "index", modrinth.IndexRelevance, "sort order: relevance, downloads, follows, newest or updated")
	completeFlag(cmd, "index", searchIndexes)

	return cmd
}

// lookupCommand creates the "lookup" command.
func (c *CLI) lookupCommand() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "lookup <hash>",
		Short: "Find the version that published a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algo, err := integrity.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, release := c.newRegistry(ctx)
			defer release()

			v, err := client.FetchVersionByFileHash(ctx, args[0], algo, c.refresh)
			if err != nil {
				return err
			}
			if v == nil {
				printInfo("No version found for %s %s", algo, args[0])
				return nil
			}
			printVersion(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", string(integrity.SHA1), "hash algorithm: sha1 or sha512")
	completeFlag(cmd, "algorithm", lookupAlgorithms)

	return cmd
}
