package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// newSitemapCmd creates the 'sitemap' subcommand: expand the site's sitemap
// into a seed list and fetch each seed once.
func newSitemapCmd() *cobra.Command {
	var flags runFlags
	var sitemapURL string
	cmd := &cobra.Command{
		Use:   "sitemap <url>",
		Short: "Fetch the pages listed in a site's sitemap",
		Long: `Locates the sitemap for the entry URL via robots.txt (falling back to
/sitemap.xml), expands it into a seed list, and fetches each seed once
with no link-following. --sitemap-url skips discovery.`,
		Args: entryArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			cfg := flags.toRunConfig(svc, args[0], crawler.ModeSitemap)

			// Gate the entry before discovery: a blocked host must not be
			// probed for robots.txt or a sitemap.
			if !crawler.IsPublicHTTPURL(cfg.Entry) {
				return fmt.Errorf("%q: %w", cfg.Entry, crawler.ErrBlockedURL)
			}
			if sitemapURL != "" && !crawler.IsPublicHTTPURL(sitemapURL) {
				return fmt.Errorf("%q: %w", sitemapURL, crawler.ErrBlockedURL)
			}

			loc := sitemapURL
			if loc == "" {
				loc, err = svc.seeder.Discover(cmd.Context(), cfg.Entry)
				if err != nil {
					return fmt.Errorf("discover sitemap: %w", err)
				}
			}
			seeds, err := svc.seeder.Seeds(cmd.Context(), loc, cfg.MaxPages, cfg.IncludePatterns, cfg.ExcludePatterns)
			if err != nil {
				return fmt.Errorf("expand sitemap: %w", err)
			}
			if len(seeds) == 0 {
				return fmt.Errorf("sitemap %s produced no seeds", loc)
			}
			svc.logger.Info("sitemap expanded", zap.String("sitemap", loc), zap.Int("seeds", len(seeds)))

			cfg.SitemapSeeds = seeds
			return executeRun(cmd, svc, cfg)
		},
	}
	registerRunFlags(cmd, &flags)
	cmd.Flags().StringVar(&sitemapURL, "sitemap-url", "", "explicit sitemap URL, skipping discovery")
	return cmd
}
