package htmlmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>  Sample Page  </title></head>
<body>
  <h1>Welcome</h1>
  <p>Some   introductory
     text here.</p>
  <h2>Features</h2>
  <ul>
    <li>fast</li>
    <li>simple</li>
  </ul>
  <blockquote>a quoted line</blockquote>
  <pre>
code line one
code line two
</pre>
  <a href="/docs">Docs</a>
  <a href="https://other.org/page">External</a>
  <a href="#section">Anchor</a>
  <a href="javascript:void(0)">JS</a>
  <a href="">Empty</a>
</body>
</html>`

func TestConvert_BlocksAndTitle(t *testing.T) {
	t.Parallel()

	doc, err := Convert([]byte(samplePage))
	require.NoError(t, err)

	require.Equal(t, "Sample Page", doc.Title)
	require.Contains(t, doc.Markdown, "# Sample Page")
	require.Contains(t, doc.Markdown, "# Welcome")
	require.Contains(t, doc.Markdown, "## Features")
	require.Contains(t, doc.Markdown, "Some introductory text here.")
	require.Contains(t, doc.Markdown, "- fast")
	require.Contains(t, doc.Markdown, "- simple")
	require.Contains(t, doc.Markdown, "> a quoted line")
	require.Contains(t, doc.Markdown, "```\ncode line one\ncode line two\n```")
}

func TestConvert_LinksSkipFragmentsAndJavascript(t *testing.T) {
	t.Parallel()

	doc, err := Convert([]byte(samplePage))
	require.NoError(t, err)

	hrefs := make([]string, 0, len(doc.Links))
	for _, l := range doc.Links {
		hrefs = append(hrefs, l.Href)
	}
	require.Equal(t, []string{"/docs", "https://other.org/page"}, hrefs)
}

func TestConvert_EmptyBody(t *testing.T) {
	t.Parallel()

	doc, err := Convert([]byte(""))
	require.NoError(t, err)
	require.Empty(t, doc.Title)
	require.Empty(t, doc.Links)
	require.Equal(t, "\n", doc.Markdown)
}

func TestConvert_PlainTextTreatedAsHTML(t *testing.T) {
	t.Parallel()

	// The HTML parser is lenient; bare text lands in an implicit body.
	doc, err := Convert([]byte("just some text"))
	require.NoError(t, err)
	require.Empty(t, doc.Links)
}
