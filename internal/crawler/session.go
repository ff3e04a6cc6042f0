package crawler

import (
	"context"
	"time"
)

// frontierEntry is a pending (url, depth) pair awaiting traversal. Depth is
// the BFS distance from the seed; the seed has depth 0.
type frontierEntry struct {
	url   string
	depth int
}

// frontier is the FIFO queue of not-yet-fetched entries. A queued set keeps
// URLs rediscovered on later pages from entering twice.
type frontier struct {
	entries []frontierEntry
	queued  map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{queued: make(map[string]struct{})}
}

// push appends an entry unless the URL is already queued.
func (f *frontier) push(url string, depth int) bool {
	if _, dup := f.queued[url]; dup {
		return false
	}
	f.queued[url] = struct{}{}
	f.entries = append(f.entries, frontierEntry{url: url, depth: depth})
	return true
}

// pop removes and returns the head of the queue.
func (f *frontier) pop() (frontierEntry, bool) {
	if len(f.entries) == 0 {
		return frontierEntry{}, false
	}
	head := f.entries[0]
	f.entries = f.entries[1:]
	return head, true
}

func (f *frontier) len() int {
	return len(f.entries)
}

// visitTracker records URLs that have been dequeued; membership prevents both
// re-fetching and re-enqueuing.
type visitTracker struct {
	seen map[string]struct{}
}

func newVisitTracker() *visitTracker {
	return &visitTracker{seen: make(map[string]struct{})}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (t *visitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := t.seen[url]; ok {
		return false
	}
	t.seen[url] = struct{}{}
	return true
}

// Seen reports whether the URL was already dequeued.
func (t *visitTracker) Seen(url string) bool {
	_, ok := t.seen[url]
	return ok
}

// pauseController abstracts how the engine waits between fetches.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// session owns the mutable traversal state of one run: frontier, visited set,
// running totals, and the gathered pages. It is passed by reference into the
// engine's step functions so they stay deterministic and testable.
type session struct {
	frontier *frontier
	visited  *visitTracker
	totals   Totals
	records  []PageRecord
	pages    []CrawlPage
	contents []string
}

func newSession() *session {
	return &session{
		frontier: newFrontier(),
		visited:  newVisitTracker(),
	}
}
