package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand: breadth-first traversal from an
// entry URL, optionally crossing domains.
func newCrawlCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl outward from an entry URL, breadth first",
		Long: `Crawls breadth first from the entry URL, converting each admitted page
to markdown. Depth and page budgets bound the traversal; the adaptive
flag stops the run early once enough content has accumulated for the
query.`,
		Args: entryArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			cfg := flags.toRunConfig(svc, args[0], crawler.ModeCrawl)
			return executeRun(cmd, svc, cfg)
		},
	}
	registerRunFlags(cmd, &flags)
	return cmd
}
