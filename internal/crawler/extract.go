package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// markdownURLPattern picks bare http(s) tokens out of markdown text. The
// character class is bounded so trailing whitespace, brackets and quotes never
// leak into the match.
var markdownURLPattern = regexp.MustCompile(`https?://[^\s<>\[\](){}"']+`)

// ExtractLinks merges the engine-reported links with a best-effort scan of the
// markdown body, resolves every candidate against base, and deduplicates while
// preserving first-seen order. The markdown scan is inherently lossy; it
// supplements the structured links, it does not guarantee completeness.
func ExtractLinks(base string, res FetchResult) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(res.Links))
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		resolved := raw
		if baseURL != nil {
			resolved = baseURL.ResolveReference(ref).String()
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	for _, link := range res.Links {
		add(link.Target())
	}
	for _, match := range markdownURLPattern.FindAllString(res.Markdown, -1) {
		add(match)
	}
	return out
}
