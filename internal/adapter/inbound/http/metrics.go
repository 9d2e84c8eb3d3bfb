// Package http provides the HTTP transport adapter for the gateway.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prover gateway.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal           *prometheus.CounterVec
	RequestDuration         *prometheus.HistogramVec
	ActiveNotarizations     prometheus.Gauge
	HeaderPolicyEvaluations *prometheus.CounterVec
	ProofsPublishedTotal    prometheus.Counter
	AttemptLogDropsTotal    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tlsn_prover",
				Name:      "requests_total",
				Help:      "Total number of proxied requests processed",
			},
			[]string{"method", "status"}, // status=success/failure, per attemptlog.Outcome
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tlsn_prover",
				Name:      "request_duration_seconds",
				Help:      "End-to-end notarization request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ActiveNotarizations: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tlsn_prover",
				Name:      "active_notarizations",
				Help:      "Number of notarization attempts currently in flight",
			},
		),
		HeaderPolicyEvaluations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tlsn_prover",
				Name:      "header_policy_evaluations_total",
				Help:      "Total requests shaped under the additive header policy",
			},
			// result: the service records "allow" once per successfully
			// shaped request; headers the policy drops are not counted.
			[]string{"result"},
		),
		ProofsPublishedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "tlsn_prover",
				Name:      "proofs_published_total",
				Help:      "Total proofs handed to the IPC bus for publication, including sends that failed",
			},
		),
		AttemptLogDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "tlsn_prover",
				Name:      "attempt_log_drops_total",
				Help:      "Total attempt log records the ledger failed to write",
			},
		),
	}
}
