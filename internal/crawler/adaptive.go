package crawler

import "strings"

// Content thresholds (characters) for adaptive termination.
const (
	defaultContentThreshold = 5000
	wideContentThreshold    = 8000
	narrowContentThreshold  = 3000
)

// ShouldContinue reports whether traversal should keep going: true while page
// budget remains and the accumulated content is still below thresholdChars.
// This is a coarse volume proxy for "enough information gathered"; it has no
// semantic understanding of relevance.
func ShouldContinue(contents []string, maxPages, thresholdChars int) bool {
	if len(contents) >= maxPages {
		return false
	}
	total := 0
	for _, c := range contents {
		total += len(c)
	}
	return total < thresholdChars
}

// ThresholdForQuery widens or narrows the content threshold based on the
// query: long or self-described detailed/comprehensive queries get more
// content, short queries less. An empty query keeps the default.
func ThresholdForQuery(query string) int {
	if query == "" {
		return defaultContentThreshold
	}
	lowered := strings.ToLower(query)
	if len(query) > 100 || strings.Contains(lowered, "detailed") || strings.Contains(lowered, "comprehensive") {
		return wideContentThreshold
	}
	if len(query) < 30 {
		return narrowContentThreshold
	}
	return defaultContentThreshold
}
