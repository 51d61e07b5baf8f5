package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var (
	sinkTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmdb_export_sink_total",
			Help: "Sink writes by sink and outcome.",
		},
		[]string{"sink", "status"},
	)

	sinkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmdb_export_sink_duration_seconds",
			Help:    "Duration of one sink write.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	serviceNowRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmdb_export_servicenow_records_total",
			Help: "ServiceNow record writes by outcome.",
		},
		[]string{"status"},
	)
)
