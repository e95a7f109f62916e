package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nezuko_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nezuko_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Verification metrics
	VerificationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nezuko_verifications_started_total",
			Help: "Verification sessions started",
		},
	)

	VerificationsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nezuko_verifications_finished_total",
			Help: "Verification sessions that reached a terminal state",
		},
		[]string{"outcome"}, // "completed", "abandoned", "not_configured", "rate_limited"
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nezuko_verification_sessions_active",
			Help: "Verification sessions in progress",
		},
	)

	RoleMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nezuko_role_mutations_total",
			Help: "Role grants and revocations",
		},
		[]string{"op", "result"},
	)

	WelcomePosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nezuko_welcome_posts_total",
			Help: "Welcome messages posted",
		},
		[]string{"kind"}, // "image" or "text"
	)

	ConfigStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nezuko_config_store_ops_total",
			Help: "Config store operations",
		},
		[]string{"op", "backend", "result"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nezuko_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nezuko_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
