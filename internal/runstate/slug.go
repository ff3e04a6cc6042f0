package runstate

import (
	"net/url"
	"regexp"
	"strings"
)

const maxSlugLen = 180

var (
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9\-_.]+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// slugForURL derives a deterministic, filesystem-safe base name from the
// URL's host and path: lowercased, non-alphanumeric runs collapsed to a
// single underscore, bounded in length. An empty path maps to "index".
func slugForURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page"
	}
	host := u.Hostname()
	if host == "" {
		host = "site"
	}
	pathPart := strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_")
	if pathPart == "" {
		pathPart = "index"
	}
	return slugify(host + "_" + pathPart)
}

func slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonSlugChars.ReplaceAllString(text, "_")
	text = underscoreRuns.ReplaceAllString(text, "_")
	text = strings.Trim(text, "_")
	if text == "" {
		return "index"
	}
	if len(text) > maxSlugLen {
		text = text[:maxSlugLen]
	}
	return text
}
