package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Counter: total HTTP requests
	ReqCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Histogram: request latency
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "app_request_duration_seconds",
			Help: "Request duration seconds",
		},
		[]string{"method", "path"},
	)

	// Counter: recorded check-ins and skips
	CheckinCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_checkins_total",
			Help: "Total check-in records created",
		},
		[]string{"kind"}, // checkin | skip | duplicate
	)

	// Histogram: streak/analytics recomputation latency
	RecomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "app_recompute_duration_seconds",
			Help: "Streak and analytics recomputation duration",
		},
	)

	// Counter: freeze token grants and activations
	FreezeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_freeze_ops_total",
			Help: "Freeze token grants and activations",
		},
		[]string{"op"}, // grant | activate | rejected
	)
)

func InitMetrics() {
	prometheus.MustRegister(ReqCount, ReqDuration, CheckinCount, RecomputeDuration, FreezeOps)
}
