// Package metrics exposes Prometheus collectors for agent runs and workflow transitions.
package metrics

import (
	"net/http"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tenderflow"

// Metrics is nil-safe: every Observe method on a nil receiver is a no-op.
type Metrics struct {
	registry       *prometheus.Registry
	agentRuns      *prometheus.CounterVec
	agentDuration  *prometheus.HistogramVec
	orchestrations *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	jobs           *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		agentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Agent executions by outcome.",
		}, []string{"agent", "outcome"}),
		agentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_duration_seconds",
			Help:      "Agent execution latency.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"agent"}),
		orchestrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrations_total",
			Help:      "Expert orchestrations by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Persisted workflow status changes.",
		}, []string{"from", "to"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_jobs_total",
			Help:      "Background agent jobs by final status.",
		}, []string{"agent", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.agentRuns,
		m.agentDuration,
		m.orchestrations,
		m.transitions,
		m.jobs,
	)
	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *Metrics) ObserveAgent(agent domain.AgentName, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(string(agent), outcome(success)).Inc()
	m.agentDuration.WithLabelValues(string(agent)).Observe(d.Seconds())
}

func (m *Metrics) ObserveOrchestration(success bool) {
	if m == nil {
		return
	}
	m.orchestrations.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) ObserveTransition(from, to domain.Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ObserveJob(agent domain.AgentName, status domain.AgentJobStatus) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(string(agent), string(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
