package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetsum_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetsum_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	activeRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sheetsum_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
		[]string{"route"},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetsum_extractions_total",
			Help: "Extraction requests by rule set type and outcome",
		},
		[]string{"type", "outcome"},
	)
)
