package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, reg)

	m.ObservePlan("raydium", "open", 6, nil)
	m.ObservePlan("raydium", "open", 0, errors.New("boom"))
	m.ObserveSimulation(nil)
	m.ObserveUpdate("pool", nil)
	m.ObserveUpdate("pool", errors.New("short"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.plans.WithLabelValues("raydium", "open", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.plans.WithLabelValues("raydium", "open", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.simulations.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.updates.WithLabelValues("pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors.WithLabelValues("pool")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePlan("orca", "swap", 3, nil)
		m.ObserveSubmission(nil)
		m.SetPositionAmounts(1, 2)
	})
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, reg)
	m.ObserveSubmission(nil)

	rec := httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clmm_submitter_submissions_total")
}
