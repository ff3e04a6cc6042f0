package crawler

import (
	"context"
	"time"
)

// FetchEngine fetches a single URL and returns extracted markdown plus raw
// outbound links. Implementations live under internal/fetch.
type FetchEngine interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// RunStore persists the durable artifacts of one run. Implementations append
// new lines or rewrite whole documents only, never mutate prior content, and
// are not safe for unsynchronized concurrent writers.
type RunStore interface {
	// WritePage persists markdown content and returns the file path and the
	// number of bytes written.
	WritePage(url, markdown string) (path string, contentBytes int, err error)
	// AppendPageRecord appends one line to the page-event log.
	AppendPageRecord(rec PageRecord) error
	// AppendLinks appends discovered links to the link table, writing the
	// header row on first use.
	AppendLinks(pageURL string, links []string) error
	// AppendEvent appends a timestamped lifecycle event to the event log.
	AppendEvent(event string, fields map[string]any) error
	// WriteManifest overwrites the manifest document.
	WriteManifest(m *Manifest) error
	Dir() string
	ManifestPath() string
}

// RunStoreFactory creates the store for a fresh run directory.
type RunStoreFactory func(baseDir, runID string) (RunStore, error)

// RunIDGenerator produces unique run identifiers.
type RunIDGenerator interface {
	NewRunID(prefix string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
