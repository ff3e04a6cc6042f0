package crawler

import "time"

// SchemaVersion identifies the manifest document layout.
const SchemaVersion = "1.0"

// Mode selects the traversal strategy for a run.
type Mode string

// Supported run modes.
const (
	ModeScrape  Mode = "scrape"
	ModeCrawl   Mode = "crawl"
	ModeSite    Mode = "site"
	ModeSitemap Mode = "sitemap"
)

// PageStatus is the outcome tag of one fetch attempt.
type PageStatus string

// Page attempt outcomes.
const (
	PageOK    PageStatus = "ok"
	PageError PageStatus = "error"
)

// PageRecord is the immutable outcome of one fetch attempt. Path is set only
// for ok records and Error only for error records. ContentBytes always
// serializes, so an ok record for an empty page still carries its zero count.
type PageRecord struct {
	URL          string     `json:"url"`
	Status       PageStatus `json:"status"`
	Path         string     `json:"path,omitempty"`
	ContentBytes int        `json:"content_bytes"`
	Error        string     `json:"error,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
}

// Totals are the running counters of a run. PagesOK+PagesFailed always equals
// the number of page records, and BytesWritten is the sum of ContentBytes over
// ok records.
type Totals struct {
	PagesOK      int `json:"pages_ok"`
	PagesFailed  int `json:"pages_failed"`
	BytesWritten int `json:"bytes_written"`
}

// Apply folds a new page record into the totals.
func (t *Totals) Apply(rec PageRecord) {
	if rec.Status == PageOK {
		t.PagesOK++
		t.BytesWritten += rec.ContentBytes
	} else {
		t.PagesFailed++
	}
}

// Manifest is the authoritative summary document for a run. It is rewritten
// whole after every page attempt, so it is always a consistent snapshot as of
// the last completed attempt. FinishedAt stays nil while the run is in
// progress or was aborted.
type Manifest struct {
	SchemaVersion string       `json:"schema_version"`
	RunID         string       `json:"run_id"`
	Entry         string       `json:"entry"`
	Mode          Mode         `json:"mode"`
	StartedAt     string       `json:"started_at"`
	FinishedAt    *string      `json:"finished_at"`
	Pages         []PageRecord `json:"pages"`
	Totals        Totals       `json:"totals"`
	Config        RunConfig    `json:"config"`
}

// Link is a structured outbound link reported by a fetch engine. Engines may
// populate either field.
type Link struct {
	Href string `json:"href,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Target returns whichever of Href or URL is set, preferring Href.
func (l Link) Target() string {
	if l.Href != "" {
		return l.Href
	}
	return l.URL
}

// FetchResult is what a fetch engine returns for one URL: extracted markdown
// plus the raw outbound links it observed.
type FetchResult struct {
	URL      string
	Markdown string
	Links    []Link
	Duration time.Duration
}

// CrawlPage pairs a fetched page with its resolved outbound links for callers
// that consume crawl results in memory.
type CrawlPage struct {
	URL      string   `json:"url"`
	Markdown string   `json:"markdown"`
	Links    []string `json:"links"`
}

// RunOutcome summarizes a finished traversal. RunID, RunDir and ManifestPath
// are empty when the run was not persisted.
type RunOutcome struct {
	RunID        string       `json:"run_id,omitempty"`
	Entry        string       `json:"entry"`
	Mode         Mode         `json:"mode"`
	RunDir       string       `json:"run_dir,omitempty"`
	ManifestPath string       `json:"manifest_path,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Totals       Totals       `json:"totals"`
	Records      []PageRecord `json:"pages"`

	// Pages carries the gathered content for in-memory callers; it is not
	// part of the serialized summary.
	Pages []CrawlPage `json:"-"`
}
