package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrBlockedURL is returned when an entry or seed URL fails the admission
// gate. It is always returned before any fetch or filesystem side effect.
var ErrBlockedURL = errors.New("blocked URL: only public http(s) URLs are allowed")

// Engine is the frontier traversal controller. It owns the BFS loop and
// drives the fetch engine, admission gate, link extractor, adaptive heuristic
// and run-state store for each run. The engine itself is stateless across
// runs; all mutable state lives in a per-run session.
type Engine struct {
	fetcher FetchEngine
	clock   Clock
	stores  RunStoreFactory
	runIDs  RunIDGenerator
	logger  *zap.Logger
	pause   pauseController
}

// NewEngine constructs an Engine. The store factory may be nil when callers
// never persist runs.
func NewEngine(
	fetcher FetchEngine,
	clock Clock,
	stores RunStoreFactory,
	runIDs RunIDGenerator,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fetcher: fetcher,
		clock:   clock,
		stores:  stores,
		runIDs:  runIDs,
		logger:  logger,
		pause:   timerPauseController{},
	}
}

// Run executes one crawl invocation described by cfg and returns its outcome.
// Per-page fetch failures are folded into error records and never abort the
// run; configuration, admission and persistence failures do.
func (e *Engine) Run(ctx context.Context, cfg RunConfig) (RunOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return RunOutcome{}, err
	}
	if !IsPublicHTTPURL(cfg.Entry) {
		return RunOutcome{}, fmt.Errorf("%q: %w", cfg.Entry, ErrBlockedURL)
	}
	gate, err := NewGate(cfg.Entry, cfg.SameDomainOnly, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return RunOutcome{}, err
	}

	started := e.clock.Now()
	outcome := RunOutcome{Entry: cfg.Entry, Mode: cfg.Mode, StartedAt: started}
	sess := newSession()

	var store RunStore
	var manifest *Manifest
	if cfg.OutputDir != "" {
		if e.stores == nil {
			return RunOutcome{}, errors.New("no run store factory configured")
		}
		runID := e.runIDs.NewRunID(cfg.RunPrefix)
		store, err = e.stores(cfg.OutputDir, runID)
		if err != nil {
			return RunOutcome{}, fmt.Errorf("create run directory: %w", err)
		}
		manifest = &Manifest{
			SchemaVersion: SchemaVersion,
			RunID:         runID,
			Entry:         cfg.Entry,
			Mode:          cfg.Mode,
			StartedAt:     started.UTC().Format(time.RFC3339),
			Pages:         []PageRecord{},
			Config:        cfg,
		}
		if err := store.WriteManifest(manifest); err != nil {
			return RunOutcome{}, fmt.Errorf("write initial manifest: %w", err)
		}
		if err := store.AppendEvent("run_start", map[string]any{
			"entry": cfg.Entry,
			"mode":  string(cfg.Mode),
		}); err != nil {
			return RunOutcome{}, fmt.Errorf("log run start: %w", err)
		}
		outcome.RunID = runID
		outcome.RunDir = store.Dir()
		outcome.ManifestPath = store.ManifestPath()
	}

	TotalRuns.WithLabelValues(string(cfg.Mode)).Inc()
	e.logger.Info("run started",
		zap.String("entry", cfg.Entry),
		zap.String("mode", string(cfg.Mode)),
		zap.String("run_id", outcome.RunID),
	)

	switch cfg.Mode {
	case ModeSite, ModeCrawl:
		err = e.traverse(ctx, cfg, gate, sess, store, manifest)
	default:
		err = e.iterate(ctx, cfg, sess, store, manifest)
	}
	if err != nil {
		return RunOutcome{}, err
	}

	return e.finalize(sess, store, manifest, outcome)
}

// traverse runs the breadth-first loop for crawl and site modes.
func (e *Engine) traverse(
	ctx context.Context,
	cfg RunConfig,
	gate *Gate,
	sess *session,
	store RunStore,
	manifest *Manifest,
) error {
	threshold := ThresholdForQuery(cfg.Query)
	sess.frontier.push(cfg.Entry, 0)

	for sess.frontier.len() > 0 && sess.totals.PagesOK < cfg.MaxPages {
		entry, ok := sess.frontier.pop()
		if !ok {
			break
		}
		// Re-discovered URLs are absorbed silently and consume no budget.
		if !sess.visited.MarkIfNew(entry.url) {
			continue
		}
		// Stale entries beyond the depth budget should not occur given the
		// enqueue guard below, but are skipped rather than fetched.
		if entry.depth > cfg.MaxDepth {
			continue
		}

		links, fetched, err := e.attemptPage(ctx, entry.url, sess, store, manifest)
		if err != nil {
			return err
		}

		if fetched && cfg.Adaptive && !ShouldContinue(sess.contents, cfg.MaxPages, threshold) {
			TotalAdaptiveStops.Inc()
			e.logger.Info("adaptive stop", zap.Int("pages", len(sess.contents)), zap.Int("threshold_chars", threshold))
			if store != nil {
				if aerr := store.AppendEvent("adaptive_stop", map[string]any{
					"pages":           len(sess.contents),
					"threshold_chars": threshold,
				}); aerr != nil {
					return fmt.Errorf("log adaptive stop: %w", aerr)
				}
			}
			break
		}

		if fetched && entry.depth+1 <= cfg.MaxDepth {
			for _, link := range links {
				if sess.totals.PagesOK >= cfg.MaxPages {
					break
				}
				if !gate.Admit(link) {
					continue
				}
				if sess.visited.Seen(link) {
					continue
				}
				sess.frontier.push(link, entry.depth+1)
			}
		}

		e.pause.Pause(ctx, cfg.delay())
		if ctx.Err() != nil {
			return fmt.Errorf("run interrupted: %w", ctx.Err())
		}
	}
	return nil
}

// iterate runs the flat pass for scrape and sitemap modes: every seed is
// fetched once with the same persist and error handling as the BFS loop, with
// no link-following and no depth tracking.
func (e *Engine) iterate(
	ctx context.Context,
	cfg RunConfig,
	sess *session,
	store RunStore,
	manifest *Manifest,
) error {
	seeds := cfg.SitemapSeeds
	if cfg.Mode == ModeScrape {
		seeds = []string{cfg.Entry}
	}
	threshold := ThresholdForQuery(cfg.Query)

	for _, seed := range seeds {
		if sess.totals.PagesOK >= cfg.MaxPages {
			break
		}
		// Seeds come from third-party sitemap documents; unsafe targets are
		// skipped without a record, the same as discovered links.
		if !IsPublicHTTPURL(seed) {
			continue
		}
		if !sess.visited.MarkIfNew(seed) {
			continue
		}

		_, fetched, err := e.attemptPage(ctx, seed, sess, store, manifest)
		if err != nil {
			return err
		}

		if fetched && cfg.Adaptive && !ShouldContinue(sess.contents, cfg.MaxPages, threshold) {
			TotalAdaptiveStops.Inc()
			break
		}

		e.pause.Pause(ctx, cfg.delay())
		if ctx.Err() != nil {
			return fmt.Errorf("run interrupted: %w", ctx.Err())
		}
	}
	return nil
}

// attemptPage fetches one URL and folds the outcome into the session and the
// store. A fetch failure produces an error record and a nil error; only
// persistence failures are returned, and they abort the run.
func (e *Engine) attemptPage(
	ctx context.Context,
	pageURL string,
	sess *session,
	store RunStore,
	manifest *Manifest,
) (links []string, fetched bool, err error) {
	start := e.clock.Now()
	res, fetchErr := e.fetcher.Fetch(ctx, pageURL)
	elapsed := e.clock.Now().Sub(start)
	if res.Duration > 0 {
		elapsed = res.Duration
	}

	rec := PageRecord{URL: pageURL, DurationMs: elapsed.Milliseconds()}
	if fetchErr != nil {
		rec.Status = PageError
		rec.Error = fetchErr.Error()
		TotalFetchErrors.Inc()
		e.logger.Warn("fetch failed", zap.String("url", pageURL), zap.Error(fetchErr))
	} else {
		links = ExtractLinks(pageURL, res)
		rec.Status = PageOK
		rec.ContentBytes = len(res.Markdown)
		if store != nil {
			path, n, werr := store.WritePage(pageURL, res.Markdown)
			if werr != nil {
				return nil, false, fmt.Errorf("persist page %s: %w", pageURL, werr)
			}
			rec.Path = path
			rec.ContentBytes = n
			if len(links) > 0 {
				if lerr := store.AppendLinks(pageURL, links); lerr != nil {
					return nil, false, fmt.Errorf("append links for %s: %w", pageURL, lerr)
				}
			}
		}
		sess.pages = append(sess.pages, CrawlPage{URL: pageURL, Markdown: res.Markdown, Links: links})
		sess.contents = append(sess.contents, res.Markdown)
		TotalPagesFetched.Inc()
		TotalLinksDiscovered.Add(float64(len(links)))
		e.logger.Debug("page fetched",
			zap.String("url", pageURL),
			zap.Int("content_bytes", rec.ContentBytes),
			zap.Int("links", len(links)),
		)
	}

	sess.records = append(sess.records, rec)
	sess.totals.Apply(rec)

	if store != nil {
		if err := store.AppendPageRecord(rec); err != nil {
			return nil, false, fmt.Errorf("append page record: %w", err)
		}
		manifest.Pages = append(manifest.Pages, rec)
		manifest.Totals = sess.totals
		if err := store.WriteManifest(manifest); err != nil {
			return nil, false, fmt.Errorf("rewrite manifest: %w", err)
		}
		event := "page_ok"
		fields := map[string]any{
			"url":         pageURL,
			"status":      string(rec.Status),
			"duration_ms": rec.DurationMs,
		}
		if rec.Status == PageError {
			event = "page_error"
			fields["error"] = rec.Error
		}
		if err := store.AppendEvent(event, fields); err != nil {
			return nil, false, fmt.Errorf("log page event: %w", err)
		}
	}
	return links, rec.Status == PageOK, nil
}

// finalize stamps finished_at and assembles the outcome. It is only reached
// on clean completion; interrupted runs keep a null finished_at so readers
// can tell them apart.
func (e *Engine) finalize(
	sess *session,
	store RunStore,
	manifest *Manifest,
	outcome RunOutcome,
) (RunOutcome, error) {
	finished := e.clock.Now()
	outcome.FinishedAt = finished
	outcome.Totals = sess.totals
	outcome.Records = sess.records
	outcome.Pages = sess.pages

	if store != nil {
		ts := finished.UTC().Format(time.RFC3339)
		manifest.FinishedAt = &ts
		manifest.Totals = sess.totals
		if err := store.WriteManifest(manifest); err != nil {
			return RunOutcome{}, fmt.Errorf("finalize manifest: %w", err)
		}
		if err := store.AppendEvent("run_finished", map[string]any{
			"pages_ok":      sess.totals.PagesOK,
			"pages_failed":  sess.totals.PagesFailed,
			"bytes_written": sess.totals.BytesWritten,
		}); err != nil {
			return RunOutcome{}, fmt.Errorf("log run finish: %w", err)
		}
	}

	e.logger.Info("run finished",
		zap.String("run_id", outcome.RunID),
		zap.Int("pages_ok", sess.totals.PagesOK),
		zap.Int("pages_failed", sess.totals.PagesFailed),
		zap.Int("bytes_written", sess.totals.BytesWritten),
	)
	return outcome, nil
}
