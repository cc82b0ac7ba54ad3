// Package metrics holds the Prometheus collectors for the auth endpoints.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Operation label values.
const (
	OpLogin          = "login"
	OpRefresh        = "refresh"
	OpForgotPassword = "forgot_password"
	OpGoogle         = "google"
	OpRegister       = "register"
)

type Metrics struct {
	registry     *prometheus.Registry
	AuthRequests *prometheus.CounterVec
	TokensIssued prometheus.Counter
}

// New creates the collectors on a private registry, alongside the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supermart_auth_requests_total",
				Help: "Total number of auth requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supermart_tokens_issued_total",
			Help: "Total number of access/refresh token pairs issued",
		}),
	}

	reg.MustRegister(
		m.AuthRequests,
		m.TokensIssued,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordAuth is nil-safe so services can run without metrics in tests.
func (m *Metrics) RecordAuth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthRequests.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
