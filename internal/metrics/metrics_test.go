package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveAgent(domain.AgentTech, true, 2*time.Second)
	m.ObserveAgent(domain.AgentTech, false, time.Second)
	m.ObserveAgent(domain.AgentTech, true, time.Second)
	m.ObserveOrchestration(false)
	m.ObserveTransition(domain.StatusDraft, domain.StatusExtracting)
	m.ObserveJob(domain.AgentExtract, domain.AgentJobStatusCompleted)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.agentRuns.WithLabelValues("Tech", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentRuns.WithLabelValues("Tech", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orchestrations.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("draft", "extracting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("Extract", "completed")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAgent(domain.AgentRisk, true, time.Second)
		m.ObserveOrchestration(true)
		m.ObserveTransition(domain.StatusDraft, domain.StatusExtracting)
		m.ObserveJob(domain.AgentRisk, domain.AgentJobStatusFailed)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveOrchestration(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `tenderflow_orchestrations_total{outcome="success"} 1`)
}
