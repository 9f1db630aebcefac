package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestNewMetricsWith(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	assert.NotNil(t, m.CompileTotal)
	assert.NotNil(t, m.CompileErrorsTotal)
	assert.NotNil(t, m.CompiledRequestsTotal)
	assert.NotNil(t, m.SubmitTotal)
	assert.NotNil(t, m.SubmitDurationMs)
	assert.NotNil(t, m.RateLimitHitTotal)
	assert.NotNil(t, m.PolicyDecisionTotal)
}

func TestNewMetricsWith_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetricsWith(prometheus.NewRegistry())
		NewMetricsWith(prometheus.NewRegistry())
	})
}

func TestRecordCompile(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordCompile("", []string{"openai", "openai", ""}, nil)
	m.RecordCompile("LocalParseError", nil, errors.New("bad json"))

	assert.Equal(t, float64(1), counterValue(t, m.CompileTotal, "ok"))
	assert.Equal(t, float64(1), counterValue(t, m.CompileTotal, "error"))
	assert.Equal(t, float64(1), counterValue(t, m.CompileErrorsTotal, "LocalParseError"))
	assert.Equal(t, float64(2), counterValue(t, m.CompiledRequestsTotal, "openai"))
	assert.Equal(t, float64(1), counterValue(t, m.CompiledRequestsTotal, "unknown"))
}

func TestRecordSubmit(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	m.RecordSubmit("http", "201", 42)

	assert.Equal(t, float64(1), counterValue(t, m.SubmitTotal, "http", "201"))

	h, err := m.SubmitDurationMs.GetMetricWithLabelValues("http")
	require.NoError(t, err)
	var metric dto.Metric
	require.NoError(t, h.(prometheus.Metric).Write(&metric))
	assert.Equal(t, uint64(1), metric.GetHistogram().GetSampleCount())
	assert.Equal(t, float64(42), metric.GetHistogram().GetSampleSum())
}

func TestRecordPolicyDecisionAndRateLimit(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	m.RecordPolicyDecision(true)
	m.RecordPolicyDecision(false)
	m.RecordPolicyDecision(false)
	m.RecordRateLimitHit("submit_rpm")

	assert.Equal(t, float64(1), counterValue(t, m.PolicyDecisionTotal, "allow"))
	assert.Equal(t, float64(2), counterValue(t, m.PolicyDecisionTotal, "deny"))
	assert.Equal(t, float64(1), counterValue(t, m.RateLimitHitTotal, "submit_rpm"))
}
