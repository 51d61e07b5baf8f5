package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmdb_graph_requests_total",
			Help: "Total number of paged API requests by HTTP status",
		},
		[]string{"status"},
	)

	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cmdb_graph_retries_total",
			Help: "Total number of paged API requests retried after throttling or server errors",
		},
	)

	pagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cmdb_graph_pages_total",
			Help: "Total number of listing pages fetched",
		},
	)
)
