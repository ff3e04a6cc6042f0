package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// unsetInt marks integer flags the user did not touch, so service defaults
// apply.
const unsetInt = -1

// runFlags are the knobs shared by every run-producing subcommand.
type runFlags struct {
	query      string
	maxDepth   int
	maxPages   int
	delayMS    int
	adaptive   bool
	sameDomain bool
	noPersist  bool
	outputDir  string
	prefix     string
	include    []string
	exclude    []string
}

func registerRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.query, "query", "", "query driving the adaptive stop threshold")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", unsetInt, "maximum link depth from the entry URL")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", unsetInt, "maximum number of successfully fetched pages")
	cmd.Flags().IntVar(&f.delayMS, "delay-ms", unsetInt, "politeness delay between fetches in milliseconds")
	cmd.Flags().BoolVar(&f.adaptive, "adaptive", false, "stop early once enough content has accumulated")
	cmd.Flags().BoolVar(&f.sameDomain, "same-domain", true, "restrict the crawl to the entry URL's host")
	cmd.Flags().BoolVar(&f.noPersist, "no-persist", false, "keep results in memory, do not write a run directory")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "base directory for run directories")
	cmd.Flags().StringVar(&f.prefix, "run-prefix", "", "prefix for generated run identifiers")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "regex patterns a URL must match to be crawled")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "regex patterns that exclude URLs from the crawl")
}

// toRunConfig resolves the flags against the service defaults.
func (f *runFlags) toRunConfig(svc *services, entry string, mode crawler.Mode) crawler.RunConfig {
	cfg := crawler.RunConfig{
		Entry:           entry,
		Mode:            mode,
		RunPrefix:       f.prefix,
		SameDomainOnly:  f.sameDomain,
		IncludePatterns: f.include,
		ExcludePatterns: f.exclude,
		MaxDepth:        f.maxDepth,
		MaxPages:        f.maxPages,
		Adaptive:        f.adaptive,
		Query:           f.query,
		DelayMS:         f.delayMS,
		Concurrency:     svc.cfg.Crawler.Concurrency,
	}
	if cfg.RunPrefix == "" {
		cfg.RunPrefix = svc.cfg.Crawler.RunPrefix
	}
	if cfg.MaxDepth == unsetInt {
		cfg.MaxDepth = svc.cfg.Crawler.MaxDepthDefault
	}
	if cfg.MaxPages == unsetInt {
		cfg.MaxPages = svc.cfg.Crawler.MaxPagesDefault
	}
	if cfg.DelayMS == unsetInt {
		cfg.DelayMS = svc.cfg.Crawler.DelayMS
	}
	if mode == crawler.ModeScrape || mode == crawler.ModeSitemap {
		cfg.MaxDepth = 0
	}
	if !f.noPersist {
		cfg.OutputDir = f.outputDir
		if cfg.OutputDir == "" {
			cfg.OutputDir = svc.cfg.Crawler.OutputDir
		}
	}
	return cfg
}

// executeRun drives one run to completion, records it in the history index,
// and prints the outcome summary as JSON on stdout.
func executeRun(cmd *cobra.Command, svc *services, cfg crawler.RunConfig) error {
	out, err := svc.engine.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if svc.hist != nil && out.RunID != "" {
		if herr := svc.hist.SaveRun(cmd.Context(), out); herr != nil {
			svc.logger.Warn("history save failed", zap.String("run_id", out.RunID), zap.Error(herr))
		}
	}

	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("print outcome: %w", err)
	}
	return nil
}

// entryArg validates the single positional URL argument.
func entryArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one URL argument required")
	}
	return nil
}
