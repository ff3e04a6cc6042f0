package crawler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageRecord_OKRecordAlwaysCarriesContentBytes(t *testing.T) {
	t.Parallel()

	rec := PageRecord{
		URL:    "https://example.com/empty",
		Status: PageOK,
		Path:   "pages/example_com_empty.md",
	}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"content_bytes":0`)
	require.NotContains(t, string(payload), `"error"`)
}

func TestPageRecord_ErrorRecordOmitsPath(t *testing.T) {
	t.Parallel()

	rec := PageRecord{
		URL:    "https://example.com/broken",
		Status: PageError,
		Error:  "fetch page: connection refused",
	}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NotContains(t, string(payload), `"path"`)
	require.Contains(t, string(payload), `"error"`)
}

func TestTotals_Apply(t *testing.T) {
	t.Parallel()

	var totals Totals
	totals.Apply(PageRecord{Status: PageOK, ContentBytes: 120})
	totals.Apply(PageRecord{Status: PageError})
	totals.Apply(PageRecord{Status: PageOK, ContentBytes: 30})

	require.Equal(t, Totals{PagesOK: 2, PagesFailed: 1, BytesWritten: 150}, totals)
}
