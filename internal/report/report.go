// Package report renders a human-readable markdown summary of a run from its
// manifest.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// WriteMarkdown renders a run summary for m to w.
func WriteMarkdown(w io.Writer, m *crawler.Manifest) error {
	finished := "(not finished)"
	if m.FinishedAt != nil {
		finished = *m.FinishedAt
	}

	md := markdown.NewMarkdown(w)
	md.H1(fmt.Sprintf("Run %s", m.RunID))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Entry", m.Entry},
			{"Mode", string(m.Mode)},
			{"Started", m.StartedAt},
			{"Finished", finished},
			{"Pages OK", strconv.Itoa(m.Totals.PagesOK)},
			{"Pages failed", strconv.Itoa(m.Totals.PagesFailed)},
			{"Bytes written", strconv.Itoa(m.Totals.BytesWritten)},
		},
	})
	md.PlainText("")

	md.H2("Pages")
	md.PlainText("")
	rows := make([][]string, 0, len(m.Pages))
	for _, p := range m.Pages {
		detail := p.Path
		if p.Status == crawler.PageError {
			detail = p.Error
		}
		rows = append(rows, []string{
			p.URL,
			string(p.Status),
			strconv.Itoa(p.ContentBytes),
			strconv.FormatInt(p.DurationMs, 10),
			detail,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Bytes", "Duration (ms)", "Path / Error"},
		Rows:   rows,
	})

	if err := md.Build(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
