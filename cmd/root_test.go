package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/clock/system"
	"github.com/mdcrawl/mdcrawl/internal/config"
	"github.com/mdcrawl/mdcrawl/internal/crawler"
	"github.com/mdcrawl/mdcrawl/internal/runid"
	"github.com/mdcrawl/mdcrawl/internal/runstate"
	"github.com/mdcrawl/mdcrawl/internal/sitemap"
)

type stubFetcher struct {
	pages map[string]crawler.FetchResult
}

func (s stubFetcher) Fetch(_ context.Context, url string) (crawler.FetchResult, error) {
	res, ok := s.pages[url]
	if !ok {
		return crawler.FetchResult{}, errors.New("not found")
	}
	res.URL = url
	return res, nil
}

// withStubServices swaps the service factory for one backed by an in-memory
// fetcher and a temp output directory.
func withStubServices(t *testing.T, outputDir string) {
	t.Helper()
	previous := newServices
	newServices = func(string, bool) (*services, error) {
		cfg := config.Config{
			Crawler: config.CrawlerConfig{
				OutputDir:       outputDir,
				MaxDepthDefault: 1,
				MaxPagesDefault: 5,
				Concurrency:     1,
				SameDomainOnly:  true,
			},
		}
		fetcher := stubFetcher{pages: map[string]crawler.FetchResult{
			"https://example.com/": {
				Markdown: "# Home\n\nwelcome\n",
				Links:    []crawler.Link{{Href: "/about"}},
			},
			"https://example.com/about": {Markdown: "# About\n\nabout us\n"},
		}}
		stores := func(baseDir, runID string) (crawler.RunStore, error) {
			return runstate.New(baseDir, runID)
		}
		logger := zap.NewNop()
		return &services{
			cfg:    cfg,
			logger: logger,
			engine: crawler.NewEngine(fetcher, system.New(), stores, runid.New(), logger),
			seeder: sitemap.NewSeeder(time.Second, "test-agent"),
		}, nil
	}
	t.Cleanup(func() { newServices = previous })
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestScrapeCommand_WritesRunDirectory(t *testing.T) {
	dir := t.TempDir()
	withStubServices(t, dir)

	out, err := executeCommand(t, "scrape", "https://example.com/")
	require.NoError(t, err)

	var outcome crawler.RunOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	require.NotEmpty(t, outcome.RunID)
	require.Equal(t, crawler.ModeScrape, outcome.Mode)
	require.Equal(t, 1, outcome.Totals.PagesOK)

	_, err = os.Stat(filepath.Join(outcome.RunDir, "manifest.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outcome.RunDir, "pages"))
	require.NoError(t, err)
}

func TestCrawlCommand_FollowsLinks(t *testing.T) {
	dir := t.TempDir()
	withStubServices(t, dir)

	out, err := executeCommand(t, "crawl", "https://example.com/", "--max-depth", "1")
	require.NoError(t, err)

	var outcome crawler.RunOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	require.Equal(t, 2, outcome.Totals.PagesOK)
}

func TestCrawlCommand_NoPersistSkipsRunDirectory(t *testing.T) {
	dir := t.TempDir()
	withStubServices(t, dir)

	out, err := executeCommand(t, "crawl", "https://example.com/", "--no-persist")
	require.NoError(t, err)

	var outcome crawler.RunOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	require.Empty(t, outcome.RunID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestScrapeCommand_BlockedURLFails(t *testing.T) {
	withStubServices(t, t.TempDir())

	_, err := executeCommand(t, "scrape", "http://localhost:8080/x")
	require.Error(t, err)
	require.ErrorIs(t, err, crawler.ErrBlockedURL)
}

func TestSitemapCommand_BlockedURLFailsBeforeDiscovery(t *testing.T) {
	withStubServices(t, t.TempDir())

	// A blocked entry must fail on the admission gate, not on discovery; the
	// seeder would surface a network error instead of the sentinel.
	_, err := executeCommand(t, "sitemap", "http://127.0.0.1/")
	require.Error(t, err)
	require.ErrorIs(t, err, crawler.ErrBlockedURL)
}

func TestSitemapCommand_BlockedSitemapURLFails(t *testing.T) {
	withStubServices(t, t.TempDir())

	_, err := executeCommand(t, "sitemap", "https://example.com/",
		"--sitemap-url", "http://10.0.0.5/sitemap.xml")
	require.Error(t, err)
	require.ErrorIs(t, err, crawler.ErrBlockedURL)
}

func TestReportCommand_RendersManifest(t *testing.T) {
	withStubServices(t, t.TempDir())

	base := t.TempDir()
	store, err := runstate.New(base, "run-1")
	require.NoError(t, err)
	finished := "2024-01-01T00:05:00Z"
	require.NoError(t, store.WriteManifest(&crawler.Manifest{
		SchemaVersion: crawler.SchemaVersion,
		RunID:         "run-1",
		Entry:         "https://example.com/",
		Mode:          crawler.ModeSite,
		StartedAt:     "2024-01-01T00:00:00Z",
		FinishedAt:    &finished,
		Pages:         []crawler.PageRecord{{URL: "https://example.com/", Status: crawler.PageOK, ContentBytes: 7, DurationMs: 12}},
		Totals:        crawler.Totals{PagesOK: 1, BytesWritten: 7},
	}))

	out, err := executeCommand(t, "report", store.Dir())
	require.NoError(t, err)
	require.Contains(t, out, "# Run run-1")
	require.Contains(t, out, "https://example.com/")
}

func TestRunsCommand_RequiresHistory(t *testing.T) {
	withStubServices(t, t.TempDir())

	_, err := executeCommand(t, "runs")
	require.Error(t, err)
	require.Contains(t, err.Error(), "history")
}
