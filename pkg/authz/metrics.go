package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entitiesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cmdb_authz_entities_total",
			Help: "Entities aggregated.",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cmdb_authz_run_duration_seconds",
			Help:    "Duration of a complete access aggregation run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)
