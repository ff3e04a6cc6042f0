package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// newSiteCmd creates the 'site' subcommand: a crawl pinned to the entry
// URL's host regardless of the same-domain flag.
func newSiteCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "site <url>",
		Short: "Crawl a single site, staying on the entry host",
		Args:  entryArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			cfg := flags.toRunConfig(svc, args[0], crawler.ModeSite)
			cfg.SameDomainOnly = true
			return executeRun(cmd, svc, cfg)
		},
	}
	registerRunFlags(cmd, &flags)
	return cmd
}
