package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckprompt_generation_requests_total",
			Help: "Total number of query generation requests by provider and status.",
		},
		[]string{"provider", "status"},
	)
	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckprompt_generation_latency_ms",
			Help:    "Language model round trip latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 20000, 60000},
		},
		[]string{"provider"},
	)
	executionOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckprompt_execution_outcomes_total",
			Help: "Total number of query executions by outcome and error kind.",
		},
		[]string{"outcome", "error_kind"},
	)
	executionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckprompt_execution_latency_ms",
			Help:    "Embedded engine execution latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	introspectionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckprompt_introspection_failures_total",
			Help: "Total number of schema introspection failures.",
		},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckprompt_active_sessions",
			Help: "Current number of live conversation sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		generationRequestsTotal,
		generationLatencyMs,
		executionOutcomesTotal,
		executionLatencyMs,
		introspectionFailuresTotal,
		activeSessions,
	)
}

func ObserveGeneration(provider string, failed bool, elapsed time.Duration) {
	status := "ok"
	if failed {
		status = "error"
	}
	generationRequestsTotal.WithLabelValues(provider, status).Inc()
	generationLatencyMs.WithLabelValues(provider).Observe(float64(elapsed.Milliseconds()))
}

func ObserveExecution(outcome, errorKind string, elapsed time.Duration) {
	executionOutcomesTotal.WithLabelValues(outcome, errorKind).Inc()
	executionLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func IncrementIntrospectionFailure() {
	introspectionFailuresTotal.Inc()
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}
