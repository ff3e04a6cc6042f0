package runstate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugForURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "host and path", url: "https://example.com/docs/intro", want: "example.com_docs_intro"},
		{name: "root path maps to index", url: "https://example.com/", want: "example.com_index"},
		{name: "no path maps to index", url: "https://example.com", want: "example.com_index"},
		{name: "trailing slash trimmed", url: "https://example.com/docs/", want: "example.com_docs"},
		{name: "uppercase lowered", url: "https://Example.COM/Docs", want: "example.com_docs"},
		{name: "query ignored", url: "https://example.com/search?q=go", want: "example.com_search"},
		{name: "special chars collapsed", url: "https://example.com/a b/c@d", want: "example.com_a_b_c_d"},
		{name: "unparseable", url: "http://%zz-bad", want: "page"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, slugForURL(tc.url))
		})
	}
}

func TestSlugify_TruncatesLongInput(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 500)
	got := slugify(long)
	require.Len(t, got, maxSlugLen)
}

func TestSlugify_EmptyFallsBackToIndex(t *testing.T) {
	t.Parallel()

	require.Equal(t, "index", slugify(""))
	require.Equal(t, "index", slugify("___"))
	require.Equal(t, "index", slugify("///"))
}
