// Package sitemap discovers and parses XML sitemaps to produce flat seed
// lists for sitemap-mode runs. Both urlset documents and sitemapindex
// documents are understood; index entries are followed one level deep.
package sitemap

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

const (
	// maxBodyBytes caps how much of a sitemap or robots.txt response is read.
	maxBodyBytes = 10 << 20

	// maxIndexChildren caps how many child sitemaps of an index are fetched.
	maxIndexChildren = 10
)

// Seeder fetches sitemap documents over HTTP and extracts page URLs.
type Seeder struct {
	client    *http.Client
	userAgent string
}

// NewSeeder builds a Seeder with the given request timeout.
func NewSeeder(timeout time.Duration, userAgent string) *Seeder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Seeder{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// urlsetDoc matches <urlset><url><loc> and, with renamed fields,
// <sitemapindex><sitemap><loc>.
type urlsetDoc struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []locEntry `xml:"url"`
}

type indexDoc struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	Sitemaps []locEntry `xml:"sitemap"`
}

type locEntry struct {
	Loc string `xml:"loc"`
}

// Parse extracts page URLs from one sitemap document. For a urlset the page
// locs are returned directly; for a sitemapindex the child sitemap locs are
// returned and isIndex is true.
func Parse(body []byte) (locs []string, isIndex bool, err error) {
	var set urlsetDoc
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		return collectLocs(set.URLs), false, nil
	}
	var idx indexDoc
	if err := xml.Unmarshal(body, &idx); err == nil && len(idx.Sitemaps) > 0 {
		return collectLocs(idx.Sitemaps), true, nil
	}
	return nil, false, fmt.Errorf("document contains no sitemap entries")
}

func collectLocs(entries []locEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		loc := strings.TrimSpace(e.Loc)
		if loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// Seeds fetches sitemapURL, follows one level of sitemap index, and returns
// up to maxEntries page URLs after include/exclude filtering. Malformed
// patterns are dropped, matching the admission gate's behavior.
func (s *Seeder) Seeds(ctx context.Context, sitemapURL string, maxEntries int, includePatterns, excludePatterns []string) ([]string, error) {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	locs, isIndex, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	if isIndex {
		var pages []string
		children := locs
		if len(children) > maxIndexChildren {
			children = children[:maxIndexChildren]
		}
		for _, child := range children {
			if len(pages) >= maxEntries {
				break
			}
			childBody, err := s.get(ctx, child)
			if err != nil {
				continue
			}
			childLocs, childIsIndex, err := Parse(childBody)
			if err != nil || childIsIndex {
				continue
			}
			pages = append(pages, childLocs...)
		}
		locs = pages
	}

	include := crawler.CompilePatterns(includePatterns)
	exclude := crawler.CompilePatterns(excludePatterns)
	filtered := filter(locs, include, exclude)
	if len(filtered) > maxEntries {
		filtered = filtered[:maxEntries]
	}
	return filtered, nil
}

// Discover locates the sitemap for entryURL: robots.txt Sitemap directives
// first, then the conventional /sitemap.xml location.
func (s *Seeder) Discover(ctx context.Context, entryURL string) (string, error) {
	u, err := url.Parse(entryURL)
	if err != nil {
		return "", fmt.Errorf("parse entry url: %w", err)
	}
	base := url.URL{Scheme: u.Scheme, Host: u.Host}

	robotsURL := base.String() + "/robots.txt"
	if body, err := s.get(ctx, robotsURL); err == nil {
		if loc := sitemapFromRobots(body); loc != "" {
			return loc, nil
		}
	}

	fallback := base.String() + "/sitemap.xml"
	if _, err := s.get(ctx, fallback); err != nil {
		return "", fmt.Errorf("no sitemap found for %s: %w", entryURL, err)
	}
	return fallback, nil
}

func sitemapFromRobots(body []byte) string {
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len("sitemap:") {
			continue
		}
		if !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[len("sitemap:"):])
		if loc != "" {
			return loc
		}
	}
	return ""
}

func (s *Seeder) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}

func filter(locs []string, include, exclude []*regexp.Regexp) []string {
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		if len(include) > 0 && !matchesAny(include, loc) {
			continue
		}
		if matchesAny(exclude, loc) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
