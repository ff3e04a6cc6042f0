// Package headless contains a FetchEngine that executes JavaScript via a
// headless browser before extracting content.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
	"github.com/mdcrawl/mdcrawl/internal/fetch/htmlmd"
)

// Config controls the behavior of the headless engine.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Engine implements crawler.FetchEngine using chromedp and headless Chrome.
type Engine struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a headless engine backed by chromedp.
func New(cfg Config) (*Engine, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Engine{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (e *Engine) Close() {
	e.allocCancel()
}

// Fetch navigates with a headless browser and converts the rendered DOM.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	if err := e.acquire(ctx); err != nil {
		return crawler.FetchResult{}, err
	}
	defer e.release()

	// The browser context must descend from the allocator, so the caller's
	// cancellation is forwarded by hand to abort in-flight navigation.
	taskCtx, taskCancel := chromedp.NewContext(e.allocator)
	defer taskCancel()
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	taskCtx, cancel := context.WithTimeout(taskCtx, e.cfg.NavigationTimeout)
	defer cancel()

	start := time.Now()
	var (
		rendered string
		finalURL string
	)
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(rawURL),
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return crawler.FetchResult{}, fmt.Errorf("headless fetch %s: %w", rawURL, err)
	}

	doc, err := htmlmd.Convert([]byte(rendered))
	if err != nil {
		return crawler.FetchResult{}, fmt.Errorf("convert %s: %w", rawURL, err)
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	return crawler.FetchResult{
		URL:      finalURL,
		Markdown: doc.Markdown,
		Links:    doc.Links,
		Duration: time.Since(start),
	}, nil
}

func (e *Engine) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("headless slot wait: %w", err)
	}
	if e.limiter == nil {
		return nil
	}
	select {
	case e.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait: %w", ctx.Err())
	}
}

func (e *Engine) release() {
	if e.limiter == nil {
		return
	}
	<-e.limiter
}
