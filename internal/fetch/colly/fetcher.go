// Package collyfetch implements the crawler's FetchEngine using gocolly.
package collyfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
	"github.com/mdcrawl/mdcrawl/internal/fetch/htmlmd"
	"github.com/mdcrawl/mdcrawl/internal/fetch/ratelimit"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	DomainRPS     float64
}

// Engine fetches pages over plain HTTP with Colly and converts them to
// markdown. Requests to the same domain are paced by a token bucket.
type Engine struct {
	cfg     Config
	base    *colly.Collector
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New builds an Engine.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.WithTransport(newHTTPTransport())

	return &Engine{
		cfg:     cfg,
		base:    c,
		limiter: ratelimit.New(ratelimit.Config{DefaultRPS: cfg.DomainRPS}),
		logger:  logger,
	}
}

// Fetch executes a single HTTP GET and returns the converted page.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	if err := e.limiter.Wait(ctx, rawURL); err != nil {
		return crawler.FetchResult{}, err
	}

	collector := e.base.Clone()
	if e.cfg.UserAgent != "" {
		collector.UserAgent = e.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !e.cfg.RespectRobots
	timeout := e.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		finalURL string
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
		finalURL = r.Request.URL.String()
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return crawler.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return crawler.FetchResult{}, fmt.Errorf("visit %s: %w", rawURL, err)
		}
		if fetchErr != nil {
			return crawler.FetchResult{}, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
		}
	}

	doc, err := htmlmd.Convert(body)
	if err != nil {
		return crawler.FetchResult{}, fmt.Errorf("convert %s: %w", rawURL, err)
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	e.logger.Debug("fetched",
		zap.String("url", finalURL),
		zap.Int("html_bytes", len(body)),
		zap.Int("links", len(doc.Links)),
	)
	return crawler.FetchResult{
		URL:      finalURL,
		Markdown: doc.Markdown,
		Links:    doc.Links,
		Duration: time.Since(start),
	}, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
