package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_messages_appended_total",
			Help: "Total messages appended",
		},
		[]string{"type", "storage"},
	)

	MessagesEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_messages_evicted_total",
			Help: "Messages dropped by the per-room retention cap",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Storage metrics
	StoreFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_store_fallbacks_total",
			Help: "Remote key-value faults served from the memory tier",
		},
		[]string{"op"},
	)

	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerchat_store_latency_seconds",
			Help:    "Key-value operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .25, 1, 2.5},
		},
		[]string{"op", "storage"},
	)
)
