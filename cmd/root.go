// Package cmd defines and implements the CLI commands for the mdcrawl
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/clock/system"
	"github.com/mdcrawl/mdcrawl/internal/config"
	"github.com/mdcrawl/mdcrawl/internal/crawler"
	collyfetch "github.com/mdcrawl/mdcrawl/internal/fetch/colly"
	"github.com/mdcrawl/mdcrawl/internal/fetch/headless"
	"github.com/mdcrawl/mdcrawl/internal/history"
	"github.com/mdcrawl/mdcrawl/internal/logging"
	"github.com/mdcrawl/mdcrawl/internal/runid"
	"github.com/mdcrawl/mdcrawl/internal/runstate"
	"github.com/mdcrawl/mdcrawl/internal/sitemap"
)

var (
	cfgFile string
	devMode bool
)

// services bundles everything the subcommands need. It is built once in the
// root command's PersistentPreRunE and carried through the command context.
type services struct {
	cfg     config.Config
	logger  *zap.Logger
	engine  *crawler.Engine
	seeder  *sitemap.Seeder
	hist    *history.DB
	closers []func()
}

// Close tears services down in reverse construction order.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

type servicesKey struct{}

// newServices is a variable so tests can substitute a fake factory.
var newServices = buildServices

func buildServices(cfgPath string, dev bool) (*services, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dev {
		cfg.Logging.Development = true
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	svc := &services{cfg: cfg, logger: logger}
	svc.closers = append(svc.closers, func() { _ = logger.Sync() })

	var fetcher crawler.FetchEngine
	switch cfg.Fetch.Engine {
	case config.EngineHeadless:
		h, err := headless.New(headless.Config{
			MaxParallel:       cfg.Fetch.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("init headless engine: %w", err)
		}
		svc.closers = append(svc.closers, h.Close)
		fetcher = h
	default:
		fetcher = collyfetch.New(collyfetch.Config{
			UserAgent:     cfg.Fetch.UserAgent,
			RespectRobots: cfg.Fetch.RespectRobots,
			Timeout:       cfg.FetchTimeout(),
			DomainRPS:     cfg.Fetch.DomainRPS,
		}, logger)
	}

	stores := func(baseDir, runID string) (crawler.RunStore, error) {
		return runstate.New(baseDir, runID)
	}
	svc.engine = crawler.NewEngine(fetcher, system.New(), stores, runid.New(), logger)
	svc.seeder = sitemap.NewSeeder(cfg.FetchTimeout(), cfg.Fetch.UserAgent)

	if cfg.History.Enabled {
		hist, err := history.Open(cfg.History.Path)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		svc.hist = hist
		svc.closers = append(svc.closers, func() { _ = hist.Close() })
	}

	return svc, nil
}

func resolveServices(ctx context.Context) (*services, error) {
	svc, ok := ctx.Value(servicesKey{}).(*services)
	if !ok || svc == nil {
		return nil, errors.New("application services not initialized")
	}
	return svc, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdcrawl",
		Short: "Crawl websites into markdown run directories.",
		Long: `mdcrawl fetches web pages, converts them to markdown, and records each
run in an inspectable run directory with a manifest, per-page files,
append-only page and event logs, and a link table.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newServices(cfgFile, devMode)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), servicesKey{}, svc))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if svc, ok := cmd.Context().Value(servicesKey{}).(*services); ok && svc != nil {
				svc.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&devMode, "dev", false, "force development logging")

	cmd.AddCommand(
		newScrapeCmd(),
		newCrawlCmd(),
		newSiteCmd(),
		newSitemapCmd(),
		newServeCmd(),
		newRunsCmd(),
		newReportCmd(),
	)
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
