package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/config"
	"github.com/mdcrawl/mdcrawl/internal/crawler"
	"github.com/mdcrawl/mdcrawl/internal/history"
)

type fakeRunner struct {
	lastCfg crawler.RunConfig
	outcome crawler.RunOutcome
	err     error
}

func (f *fakeRunner) Run(_ context.Context, cfg crawler.RunConfig) (crawler.RunOutcome, error) {
	f.lastCfg = cfg
	if f.err != nil {
		return crawler.RunOutcome{}, f.err
	}
	out := f.outcome
	out.Entry = cfg.Entry
	out.Mode = cfg.Mode
	return out, nil
}

type fakeSeeds struct {
	sitemapURL    string
	seeds         []string
	discover      error
	expand        error
	discoverCalls int
	seedsCalls    int
}

func (f *fakeSeeds) Discover(_ context.Context, _ string) (string, error) {
	f.discoverCalls++
	if f.discover != nil {
		return "", f.discover
	}
	return f.sitemapURL, nil
}

func (f *fakeSeeds) Seeds(_ context.Context, _ string, _ int, _, _ []string) ([]string, error) {
	f.seedsCalls++
	if f.expand != nil {
		return nil, f.expand
	}
	return f.seeds, nil
}

type fakeIndex struct {
	saved []crawler.RunOutcome
	rows  []history.RunRow
	err   error
}

func (f *fakeIndex) SaveRun(_ context.Context, out crawler.RunOutcome) error {
	f.saved = append(f.saved, out)
	return f.err
}

func (f *fakeIndex) ListRuns(_ context.Context, limit int) ([]history.RunRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func testConfig() config.Config {
	return config.Config{
		Crawler: config.CrawlerConfig{
			OutputDir:       "crawls",
			MaxDepthDefault: 1,
			MaxPagesDefault: 5,
			DelayMS:         0,
			Concurrency:     1,
			SameDomainOnly:  true,
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Crawl_Succeeds(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		outcome: crawler.RunOutcome{
			RunID:  "run-1",
			RunDir: "crawls/run-1",
			Totals: crawler.Totals{PagesOK: 2, BytesWritten: 99},
			Pages: []crawler.CrawlPage{
				{URL: "https://example.com/", Markdown: "# A"},
				{URL: "https://example.com/b", Markdown: "# B"},
			},
		},
	}
	index := &fakeIndex{}
	server := NewServer(runner, nil, index, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/crawl", `{"url":"https://example.com/","max_pages":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp crawlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "https://example.com/", resp.StartURL)
	require.Equal(t, "run-1", resp.RunID)
	require.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Pages, 2)

	require.Equal(t, crawler.ModeCrawl, runner.lastCfg.Mode)
	require.Equal(t, 3, runner.lastCfg.MaxPages)
	require.Equal(t, 1, runner.lastCfg.MaxDepth)
	require.Equal(t, "crawls", runner.lastCfg.OutputDir)
	require.Len(t, index.saved, 1)
	require.Equal(t, "run-1", index.saved[0].RunID)
}

func TestServer_Scrape_ForcesDepthZero(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	server := NewServer(runner, nil, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/scrape", `{"url":"https://example.com/","max_depth":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, crawler.ModeScrape, runner.lastCfg.Mode)
	require.Equal(t, 0, runner.lastCfg.MaxDepth)
}

func TestServer_NoPersistSkipsOutputDir(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	server := NewServer(runner, nil, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/site", `{"url":"https://example.com/","persist":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, runner.lastCfg.OutputDir)
	require.Equal(t, crawler.ModeSite, runner.lastCfg.Mode)
}

func TestServer_MissingURLRejected(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeRunner{}, nil, nil, testConfig(), zap.NewNop())

	for _, path := range []string{"/v1/scrape", "/v1/crawl", "/v1/site", "/v1/sitemap"} {
		rec := postJSON(t, server.Handler(), path, `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
		require.Contains(t, rec.Body.String(), "url required")
	}
}

func TestServer_InvalidJSONRejected(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeRunner{}, nil, nil, testConfig(), zap.NewNop())
	rec := postJSON(t, server.Handler(), "/v1/crawl", `{invalid`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BlockedURLMapsTo400(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: fmt.Errorf("%q: %w", "http://localhost/", crawler.ErrBlockedURL)}
	server := NewServer(runner, nil, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/crawl", `{"url":"http://localhost/"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "blocked URL")
}

func TestServer_EngineErrorMapsTo500(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("disk full")}
	server := NewServer(runner, nil, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/crawl", `{"url":"https://example.com/"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Sitemap_ExpandsSeeds(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	seeds := &fakeSeeds{
		sitemapURL: "https://example.com/sitemap.xml",
		seeds:      []string{"https://example.com/a", "https://example.com/b"},
	}
	server := NewServer(runner, seeds, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/sitemap", `{"url":"https://example.com/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, crawler.ModeSitemap, runner.lastCfg.Mode)
	require.Equal(t, seeds.seeds, runner.lastCfg.SitemapSeeds)
	require.Equal(t, 0, runner.lastCfg.MaxDepth)
}

func TestServer_Sitemap_BlockedEntryRejectedBeforeDiscovery(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	seeds := &fakeSeeds{
		sitemapURL: "http://127.0.0.1/sitemap.xml",
		seeds:      []string{"http://127.0.0.1/a"},
	}
	server := NewServer(runner, seeds, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/sitemap", `{"url":"http://127.0.0.1/"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "blocked")
	require.Zero(t, seeds.discoverCalls)
	require.Zero(t, seeds.seedsCalls)
	require.Nil(t, runner.lastCfg.SitemapSeeds)
}

func TestServer_Sitemap_BlockedSitemapURLRejected(t *testing.T) {
	t.Parallel()

	seeds := &fakeSeeds{seeds: []string{"https://example.com/a"}}
	server := NewServer(&fakeRunner{}, seeds, nil, testConfig(), zap.NewNop())

	body := `{"url":"https://example.com/","sitemap_url":"http://192.168.1.1/sitemap.xml"}`
	rec := postJSON(t, server.Handler(), "/v1/sitemap", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, seeds.seedsCalls)
}

func TestServer_Sitemap_DiscoveryFailureMapsTo502(t *testing.T) {
	t.Parallel()

	seeds := &fakeSeeds{discover: errors.New("no sitemap found")}
	server := NewServer(&fakeRunner{}, seeds, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/sitemap", `{"url":"https://example.com/"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Sitemap_EmptySeedsMapsTo502(t *testing.T) {
	t.Parallel()

	seeds := &fakeSeeds{sitemapURL: "https://example.com/sitemap.xml"}
	server := NewServer(&fakeRunner{}, seeds, nil, testConfig(), zap.NewNop())

	rec := postJSON(t, server.Handler(), "/v1/sitemap", `{"url":"https://example.com/"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "no seeds")
}

func TestServer_ListRuns(t *testing.T) {
	t.Parallel()

	index := &fakeIndex{rows: []history.RunRow{
		{RunID: "run-2", Entry: "https://example.com/", StartedAt: time.Now()},
		{RunID: "run-1", Entry: "https://example.com/", StartedAt: time.Now().Add(-time.Hour)},
	}}
	server := NewServer(&fakeRunner{}, nil, index, testConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "run-2")
	require.NotContains(t, rec.Body.String(), "run-1")
}

func TestServer_ListRuns_BadLimit(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeRunner{}, nil, &fakeIndex{}, testConfig(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=zero", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListRuns_DisabledWithoutIndex(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeRunner{}, nil, nil, testConfig(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeRunner{}, nil, nil, testConfig(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeRunner{}, nil, nil, testConfig(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
