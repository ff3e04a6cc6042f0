// Package runstate owns the on-disk representation of a crawl run: the run
// directory with its manifest, page-event log, link table, event log and
// persisted page files.
package runstate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// Run directory file names.
const (
	manifestFile = "manifest.json"
	pageLogFile  = "pages.jsonl"
	linksFile    = "links.csv"
	eventLogFile = "log.ndjson"
	pagesDirName = "pages"
)

var linksHeader = []string{"page_url", "link"}

// Store persists the artifacts of one run. Every file is either appended to
// (logs, link table) or overwritten as a whole document (manifest); prior
// lines are never mutated, so readers can tail the files mid-run. A Store is
// not safe for unsynchronized concurrent writers.
type Store struct {
	dir          string
	pagesDir     string
	manifestPath string
}

// New creates the run directory for runID under baseDir, including the pages/
// subdirectory, and returns a Store rooted there. Creating an already
// existing directory is not an error.
func New(baseDir, runID string) (*Store, error) {
	dir := filepath.Join(baseDir, runID)
	pagesDir := filepath.Join(dir, pagesDirName)
	if err := os.MkdirAll(pagesDir, 0o750); err != nil {
		return nil, fmt.Errorf("create run dir %s: %w", dir, err)
	}
	return &Store{
		dir:          dir,
		pagesDir:     pagesDir,
		manifestPath: filepath.Join(dir, manifestFile),
	}, nil
}

// Dir returns the run directory path.
func (s *Store) Dir() string {
	return s.dir
}

// ManifestPath returns the manifest file path.
func (s *Store) ManifestPath() string {
	return s.manifestPath
}

// WritePage persists markdown content under pages/ with a filename derived
// from the URL, and returns the path and the number of bytes written. Name
// collisions within the run get a numeric suffix instead of overwriting.
func (s *Store) WritePage(url, markdown string) (string, int, error) {
	name := s.pageFilename(url)
	target := filepath.Join(s.pagesDir, name)
	data := []byte(markdown)
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", 0, fmt.Errorf("write page %s: %w", target, err)
	}
	return target, len(data), nil
}

// pageFilename picks the first free slug-derived name for the URL.
func (s *Store) pageFilename(url string) string {
	base := slugForURL(url)
	name := base + ".md"
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(s.pagesDir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s-%d.md", base, counter)
	}
}

// AppendPageRecord appends one JSON line to the page-event log.
func (s *Store) AppendPageRecord(rec crawler.PageRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal page record: %w", err)
	}
	return s.appendLine(pageLogFile, payload)
}

// AppendLinks appends one row per link to the link table, writing the header
// row only if the file does not exist yet.
func (s *Store) AppendLinks(pageURL string, links []string) error {
	path := filepath.Join(s.dir, linksFile)
	_, statErr := os.Stat(path)
	headerNeeded := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open link table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if headerNeeded {
		if err := w.Write(linksHeader); err != nil {
			return fmt.Errorf("write link header: %w", err)
		}
	}
	for _, link := range links {
		if err := w.Write([]string{pageURL, link}); err != nil {
			return fmt.Errorf("write link row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush link table: %w", err)
	}
	return nil
}

// AppendEvent appends a timestamped lifecycle event to the event log.
func (s *Store) AppendEvent(event string, fields map[string]any) error {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["event"] = event
	line, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.appendLine(eventLogFile, line)
}

// WriteManifest overwrites the manifest with a full JSON document.
func (s *Store) WriteManifest(m *crawler.Manifest) error {
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath, append(payload, '\n'), 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest document back from disk.
func LoadManifest(path string) (*crawler.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m crawler.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func (s *Store) appendLine(file string, line []byte) error {
	f, err := os.OpenFile(filepath.Join(s.dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append to %s: %w", file, err)
	}
	return nil
}
