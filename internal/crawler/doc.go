// Package crawler implements the crawl orchestration engine: breadth-first
// frontier traversal under depth and page budgets, URL admission control,
// link extraction, adaptive early termination, and the types persisted into
// a run directory. Fetching itself is delegated to a FetchEngine.
package crawler
