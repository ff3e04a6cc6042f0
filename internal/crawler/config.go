package crawler

import (
	"fmt"
	"time"
)

// RunConfig captures every knob that influences one run. It is resolved once
// at run start, never mutated, and snapshotted verbatim into the manifest.
type RunConfig struct {
	Entry     string `json:"entry"`
	Mode      Mode   `json:"mode"`
	RunPrefix string `json:"run_prefix,omitempty"`

	// OutputDir is the base directory for the run directory. Empty disables
	// persistence; the outcome is returned in memory only.
	OutputDir string `json:"output_dir,omitempty"`

	SameDomainOnly  bool     `json:"same_domain_only"`
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	MaxDepth int `json:"max_depth"`
	MaxPages int `json:"max_pages"`

	Adaptive bool   `json:"adaptive"`
	Query    string `json:"query,omitempty"`

	// DelayMS is the politeness delay between consecutive fetches.
	DelayMS int `json:"delay_ms"`

	// Concurrency is accepted and recorded but not enforced: traversal is
	// sequential. A concurrent engine would need to share the frontier and
	// visited set under mutual exclusion and serialize store writes.
	Concurrency int `json:"concurrency"`

	// SitemapSeeds is the flat seed list for ModeSitemap, produced by the
	// sitemap seeder and already filtered and capped.
	SitemapSeeds []string `json:"-"`
}

// Validate rejects obviously bad configuration combinations.
func (c RunConfig) Validate() error {
	if c.Entry == "" {
		return fmt.Errorf("entry URL must be set")
	}
	switch c.Mode {
	case ModeScrape, ModeCrawl, ModeSite, ModeSitemap:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be > 0")
	}
	if c.DelayMS < 0 {
		return fmt.Errorf("delay_ms must be >= 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0")
	}
	return nil
}

func (c RunConfig) delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}
