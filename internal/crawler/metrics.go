package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRuns tracks the number of traversals started, labeled by mode.
	TotalRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mdcrawl_runs_total",
		Help: "The total number of crawl runs started, by mode.",
	}, []string{"mode"})
	// TotalPagesFetched tracks pages fetched and persisted successfully.
	TotalPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdcrawl_pages_fetched_total",
		Help: "The total number of pages fetched successfully.",
	})
	// TotalFetchErrors tracks fetch attempts that ended in an error record.
	TotalFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdcrawl_fetch_errors_total",
		Help: "The total number of failed fetch attempts.",
	})
	// TotalLinksDiscovered tracks outbound links extracted from fetched pages.
	TotalLinksDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdcrawl_links_discovered_total",
		Help: "The total number of outbound links extracted.",
	})
	// TotalAdaptiveStops tracks runs cut short by the adaptive heuristic.
	TotalAdaptiveStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdcrawl_adaptive_stops_total",
		Help: "The total number of runs stopped early by the adaptive heuristic.",
	})
)
