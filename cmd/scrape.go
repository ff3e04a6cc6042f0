package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// newScrapeCmd creates the 'scrape' subcommand: fetch a single URL as
// markdown with no link-following.
func newScrapeCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Fetch one page and convert it to markdown",
		Args:  entryArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			cfg := flags.toRunConfig(svc, args[0], crawler.ModeScrape)
			return executeRun(cmd, svc, cfg)
		},
	}
	registerRunFlags(cmd, &flags)
	return cmd
}
