package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_cache_hits_total",
			Help: "Rate lookups answered without an external fetch",
		},
		[]string{"layer"}, // "memory" or "store"
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_cache_misses_total",
			Help: "Rate lookups that required a refresh",
		},
	)

	ExternalFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_external_fetches_total",
			Help: "Requests made to the external rate provider",
		},
	)

	ConversionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_conversion_runs_total",
			Help: "Base currency conversion runs by terminal status",
		},
		[]string{"status"},
	)
)
