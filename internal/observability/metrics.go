// Package observability provides Prometheus metrics and HTTP middleware
// for the loan assistant services.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Collaborator outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// LatencyBuckets spans 5ms to 10s, covering local mocks and slow bank backends.
var LatencyBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loanbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	// TurnsTotal counts processed conversation turns by reply action.
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanbot_turns_total",
			Help: "Conversation turns",
		},
		[]string{"action"},
	)

	// CollaboratorRequestsTotal counts calls to the bank backend.
	CollaboratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanbot_collaborator_requests_total",
			Help: "Backend collaborator requests",
		},
		[]string{"operation", "outcome"},
	)

	// CollaboratorLatency records bank backend latency in seconds.
	CollaboratorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loanbot_collaborator_latency_seconds",
			Help:    "Backend collaborator latency",
			Buckets: LatencyBuckets,
		},
		[]string{"operation"},
	)

	// SessionsActive tracks conversations held in memory.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loanbot_sessions_active",
			Help: "Active conversations",
		},
	)

	// RateLimitRejectedTotal counts turns rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loanbot_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)

	// OTPIssuedTotal counts codes handed out by the mock bank.
	OTPIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loanbot_mock_otp_issued_total",
			Help: "OTPs issued by the mock bank",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		TurnsTotal,
		CollaboratorRequestsTotal,
		CollaboratorLatency,
		SessionsActive,
		RateLimitRejectedTotal,
		OTPIssuedTotal,
	)
}
