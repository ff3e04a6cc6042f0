// Package history maintains a cross-run index of crawl runs in a SQLite
// database. It is an index only; the run directories remain the source of
// truth for page content and manifests.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	entry         TEXT NOT NULL,
	mode          TEXT NOT NULL,
	run_dir       TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	pages_ok      INTEGER NOT NULL,
	pages_failed  INTEGER NOT NULL,
	bytes_written INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// DB is the run history index.
type DB struct {
	db   *sql.DB
	path string
}

// RunRow is one row of the history index.
type RunRow struct {
	RunID        string    `json:"run_id"`
	Entry        string    `json:"entry"`
	Mode         string    `json:"mode"`
	RunDir       string    `json:"run_dir"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	PagesOK      int       `json:"pages_ok"`
	PagesFailed  int       `json:"pages_failed"`
	BytesWritten int       `json:"bytes_written"`
}

// Open opens or creates the history database at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// A single writer keeps modernc.org/sqlite free of busy errors.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveRun records a finished persisted run. Non-persisted runs (no run ID)
// are skipped silently.
func (d *DB) SaveRun(ctx context.Context, out crawler.RunOutcome) error {
	if out.RunID == "" {
		return nil
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, entry, mode, run_dir, started_at, finished_at,
			 pages_ok, pages_failed, bytes_written)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.RunID,
		out.Entry,
		string(out.Mode),
		out.RunDir,
		out.StartedAt.UTC().Format(time.RFC3339),
		out.FinishedAt.UTC().Format(time.RFC3339),
		out.Totals.PagesOK,
		out.Totals.PagesFailed,
		out.Totals.BytesWritten,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", out.RunID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, most recent first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, entry, mode, run_dir, started_at, finished_at,
		       pages_ok, pages_failed, bytes_written
		FROM runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var started, finished string
		if err := rows.Scan(
			&r.RunID, &r.Entry, &r.Mode, &r.RunDir,
			&started, &finished,
			&r.PagesOK, &r.PagesFailed, &r.BytesWritten,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
