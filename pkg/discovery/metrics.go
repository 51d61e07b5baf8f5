package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var (
	stepTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmdb_discovery_step_total",
			Help: "Total number of discovery step runs by outcome",
		},
		[]string{"step", "status"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmdb_discovery_step_duration_seconds",
			Help:    "Discovery step duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"step"},
	)

	targetsDiscovered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cmdb_discovery_targets",
			Help: "Number of unique targets after deduplication",
		},
	)
)
