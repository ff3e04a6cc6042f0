// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/config"
	"github.com/mdcrawl/mdcrawl/internal/crawler"
	"github.com/mdcrawl/mdcrawl/internal/history"
)

// Runner executes crawl runs. Implemented by crawler.Engine.
type Runner interface {
	Run(ctx context.Context, cfg crawler.RunConfig) (crawler.RunOutcome, error)
}

// SeedSource discovers and expands sitemaps into seed URL lists.
type SeedSource interface {
	Discover(ctx context.Context, entryURL string) (string, error)
	Seeds(ctx context.Context, sitemapURL string, maxEntries int, include, exclude []string) ([]string, error)
}

// RunIndex records finished runs and lists past ones. Implemented by
// history.DB; nil disables the /v1/runs endpoint and run recording.
type RunIndex interface {
	SaveRun(ctx context.Context, out crawler.RunOutcome) error
	ListRuns(ctx context.Context, limit int) ([]history.RunRow, error)
}

// Server wires HTTP handlers to the crawl engine and the sitemap seeder.
type Server struct {
	router chi.Router
	runner Runner
	seeds  SeedSource
	index  RunIndex
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, seeds SeedSource, index RunIndex, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		seeds:  seeds,
		index:  index,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(5 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.scrape)
		r.Post("/crawl", s.crawl)
		r.Post("/site", s.crawlSite)
		r.Post("/sitemap", s.crawlSitemap)
		r.Get("/runs", s.listRuns)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

// runRequest is the shared request body for all four run endpoints. Unset
// knobs fall back to the service defaults.
type runRequest struct {
	URL             string   `json:"url"`
	Query           string   `json:"query"`
	MaxDepth        *int     `json:"max_depth"`
	MaxPages        *int     `json:"max_pages"`
	Adaptive        *bool    `json:"adaptive"`
	SameDomainOnly  *bool    `json:"same_domain_only"`
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	DelayMS         *int     `json:"delay_ms"`
	Persist         *bool    `json:"persist"`

	// SitemapURL overrides sitemap discovery for the sitemap endpoint.
	SitemapURL string `json:"sitemap_url"`
}

// crawlResponse is the response body for the crawl-family endpoints.
type crawlResponse struct {
	StartURL   string               `json:"start_url"`
	RunID      string               `json:"run_id,omitempty"`
	RunDir     string               `json:"run_dir,omitempty"`
	Pages      []crawler.CrawlPage  `json:"pages"`
	TotalPages int                  `json:"total_pages"`
	Totals     crawler.Totals       `json:"totals"`
	Records    []crawler.PageRecord `json:"records"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	s.runAndRespond(w, r, crawler.ModeScrape, nil)
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	s.runAndRespond(w, r, crawler.ModeCrawl, nil)
}

func (s *Server) crawlSite(w http.ResponseWriter, r *http.Request) {
	s.runAndRespond(w, r, crawler.ModeSite, nil)
}

func (s *Server) crawlSitemap(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required", s.logger)
		return
	}
	if s.seeds == nil {
		writeError(w, http.StatusServiceUnavailable, "sitemap seeding not configured", s.logger)
		return
	}
	// The entry must clear the admission gate before discovery touches the
	// network, otherwise a blocked host gets probed for robots.txt first.
	if !crawler.IsPublicHTTPURL(req.URL) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%q: %s", req.URL, crawler.ErrBlockedURL), s.logger)
		return
	}
	if req.SitemapURL != "" && !crawler.IsPublicHTTPURL(req.SitemapURL) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%q: %s", req.SitemapURL, crawler.ErrBlockedURL), s.logger)
		return
	}

	sitemapURL := req.SitemapURL
	if sitemapURL == "" {
		var err error
		sitemapURL, err = s.seeds.Discover(r.Context(), req.URL)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error(), s.logger)
			return
		}
	}
	maxPages := s.cfg.Crawler.MaxPagesDefault
	if req.MaxPages != nil {
		maxPages = *req.MaxPages
	}
	seeds, err := s.seeds.Seeds(r.Context(), sitemapURL, maxPages, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error(), s.logger)
		return
	}
	if len(seeds) == 0 {
		writeError(w, http.StatusBadGateway, "sitemap produced no seeds", s.logger)
		return
	}

	s.runAndRespondParsed(w, r, crawler.ModeSitemap, req, seeds)
}

func (s *Server) runAndRespond(w http.ResponseWriter, r *http.Request, mode crawler.Mode, seeds []string) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required", s.logger)
		return
	}
	s.runAndRespondParsed(w, r, mode, req, seeds)
}

func (s *Server) runAndRespondParsed(w http.ResponseWriter, r *http.Request, mode crawler.Mode, req runRequest, seeds []string) {
	cfg := s.toRunConfig(req, mode)
	cfg.SitemapSeeds = seeds

	out, err := s.runner.Run(r.Context(), cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, crawler.ErrBlockedURL) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error(), s.logger)
		return
	}

	if s.index != nil && out.RunID != "" {
		if err := s.index.SaveRun(r.Context(), out); err != nil {
			s.logger.Warn("history save failed", zap.String("run_id", out.RunID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, crawlResponse{
		StartURL:   req.URL,
		RunID:      out.RunID,
		RunDir:     out.RunDir,
		Pages:      out.Pages,
		TotalPages: len(out.Pages),
		Totals:     out.Totals,
		Records:    out.Records,
	}, s.logger)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured", s.logger)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", s.logger)
			return
		}
		limit = n
	}
	runs, err := s.index.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	if runs == nil {
		runs = []history.RunRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs}, s.logger)
}

// toRunConfig resolves a request against the service defaults.
func (s *Server) toRunConfig(req runRequest, mode crawler.Mode) crawler.RunConfig {
	cfg := crawler.RunConfig{
		Entry:           req.URL,
		Mode:            mode,
		RunPrefix:       s.cfg.Crawler.RunPrefix,
		SameDomainOnly:  boolOrDefault(req.SameDomainOnly, s.cfg.Crawler.SameDomainOnly),
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
		MaxDepth:        valueOrDefault(req.MaxDepth, s.cfg.Crawler.MaxDepthDefault),
		MaxPages:        valueOrDefault(req.MaxPages, s.cfg.Crawler.MaxPagesDefault),
		Adaptive:        boolOrDefault(req.Adaptive, false),
		Query:           req.Query,
		DelayMS:         valueOrDefault(req.DelayMS, s.cfg.Crawler.DelayMS),
		Concurrency:     s.cfg.Crawler.Concurrency,
	}
	if mode == crawler.ModeScrape || mode == crawler.ModeSitemap {
		cfg.MaxDepth = 0
	}
	if boolOrDefault(req.Persist, true) {
		cfg.OutputDir = s.cfg.Crawler.OutputDir
	}
	return cfg
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func boolOrDefault(ptr *bool, def bool) bool {
	if ptr == nil {
		return def
	}
	return *ptr
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
