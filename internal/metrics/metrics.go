package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codepad_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codepad_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Sync metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codepad_sessions_active",
			Help: "Currently connected editor sessions",
		},
	)

	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codepad_rooms_active",
			Help: "Document rooms currently held in memory",
		},
	)

	OperationsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codepad_operations_relayed_total",
			Help: "Total text operations relayed by the hub",
		},
		[]string{"operation"}, // "insert", "delete" or "replace"
	)

	CursorUpdatesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codepad_cursor_updates_relayed_total",
			Help: "Total cursor updates relayed by the hub",
		},
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codepad_messages_dropped_total",
			Help: "Messages dropped by the hub",
		},
		[]string{"reason"}, // "malformed", "unknown_type", "slow_receiver"
	)

	SnapshotFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codepad_snapshot_flushes_total",
			Help: "Room content flushes to the durable store",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codepad_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
