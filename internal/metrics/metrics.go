// Package metrics holds the prometheus collectors shared across the app.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// APIRequests counts outbound Reddit API requests by endpoint and status.
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeddit_reddit_requests_total",
			Help: "Outbound Reddit API requests",
		},
		[]string{"endpoint", "status"},
	)

	// RateRemaining is the last x-ratelimit-remaining value seen per viewer.
	RateRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jeddit_reddit_ratelimit_remaining",
			Help: "Remaining Reddit API requests in the current window",
		},
		[]string{"viewer"},
	)

	// CacheHits and CacheMisses count page-cache lookups.
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jeddit_page_cache_hits_total",
			Help: "Reddit response cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jeddit_page_cache_misses_total",
			Help: "Reddit response cache misses",
		},
	)

	// TokenRefreshes counts app token fetches by outcome.
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeddit_app_token_refresh_total",
			Help: "Application-only OAuth token fetches",
		},
		[]string{"outcome"},
	)
)

// Collectors returns all collectors for registration at startup.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		APIRequests,
		RateRemaining,
		CacheHits,
		CacheMisses,
		TokenRefreshes,
	}
}
