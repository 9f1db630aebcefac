package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the AEGIS admin service.
type Metrics struct {
	CompileTotal          *prometheus.CounterVec
	CompileErrorsTotal    *prometheus.CounterVec
	CompiledRequestsTotal *prometheus.CounterVec
	SubmitTotal           *prometheus.CounterVec
	SubmitDurationMs      *prometheus.HistogramVec
	RateLimitHitTotal     *prometheus.CounterVec
	PolicyDecisionTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CompileTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_admin_compile_total",
			Help: "Total add-model form compilations.",
		}, []string{"outcome"}),

		CompileErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_admin_compile_errors_total",
			Help: "Compilation failures reported to the dashboard, by error kind.",
		}, []string{"kind"}),

		CompiledRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_admin_compiled_requests_total",
			Help: "Model-create payloads produced by the compiler.",
		}, []string{"provider"}),

		SubmitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_admin_submit_total",
			Help: "Model-create submissions to the persistence backend.",
		}, []string{"backend", "status"}),

		SubmitDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aegis_admin_submit_duration_ms",
			Help:    "Persistence call duration in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"backend"}),

		RateLimitHitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_admin_rate_limit_hit_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"dimension"}),

		PolicyDecisionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_admin_policy_decision_total",
			Help: "Submission policy decisions.",
		}, []string{"decision"}),
	}
}

// RecordCompile records the outcome of one compile. A nil err counts as success
// and adds one compiled-request sample per provider token.
func (m *Metrics) RecordCompile(kind string, providers []string, err error) {
	if err != nil {
		m.CompileTotal.WithLabelValues("error").Inc()
		m.CompileErrorsTotal.WithLabelValues(kind).Inc()
		return
	}
	m.CompileTotal.WithLabelValues("ok").Inc()
	for _, p := range providers {
		if p == "" {
			p = "unknown"
		}
		m.CompiledRequestsTotal.WithLabelValues(p).Inc()
	}
}

// RecordSubmit records one persistence call.
func (m *Metrics) RecordSubmit(backend, status string, durationMs float64) {
	m.SubmitTotal.WithLabelValues(backend, status).Inc()
	m.SubmitDurationMs.WithLabelValues(backend).Observe(durationMs)
}

// RecordRateLimitHit records a rate-limit rejection.
func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}

// RecordPolicyDecision records an allow/deny decision.
func (m *Metrics) RecordPolicyDecision(allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.PolicyDecisionTotal.WithLabelValues(decision).Inc()
}
