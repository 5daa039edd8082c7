package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedesk_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks sessions that have not expired or been logged out.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradedesk_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// SnapshotReports counts account snapshot reports by outcome (created|updated|rejected).
	SnapshotReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedesk_snapshot_reports_total",
			Help: "Total number of trading account snapshot reports",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradedesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
