// Package metrics provides Prometheus metrics for the coach: turn outcomes,
// model call latency by phase, function dispatch, protocol anomalies,
// extracted insights and memory persistence.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "llmcoach"
)

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
var LatencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.0, 3.0, 5.0, 7.5, 10.0, 15.0, 20.0, 30.0, 60.0,
}

// Outcome label values.
const (
	OutcomeSuccess         = "success"
	OutcomeError           = "error"
	OutcomeDispatchFailure = "dispatch_failure"
	OutcomePreview         = "preview"
	OutcomeRejected        = "rejected"
)

// =============================================================================
// Turn Metrics
// =============================================================================

var (
	// TurnsTotal counts completed turns by reply type ("error" for failed turns).
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of chat turns by outcome type",
		},
		[]string{"type"},
	)

	// TurnLatency tracks end-to-end turn latency.
	TurnLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_seconds",
			Help:      "End-to-end chat turn latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"type"},
	)
)

// =============================================================================
// Model and Function Metrics
// =============================================================================

var (
	// ModelCallLatency tracks model call latency by protocol phase.
	ModelCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_latency_seconds",
			Help:      "Model call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider", "phase", "outcome"},
	)

	// FunctionCallsTotal counts requested function calls by outcome.
	FunctionCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_calls_total",
			Help:      "Total function calls requested by the model",
		},
		[]string{"function", "outcome"},
	)

	// DispatchLatency tracks dispatcher latency.
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_seconds",
			Help:      "Function dispatch latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"function"},
	)

	// ProtocolAnomalies counts model behaviour outside the call protocol.
	ProtocolAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_anomalies_total",
			Help:      "Model responses that violated the function call protocol",
		},
		[]string{"kind"},
	)
)

// =============================================================================
// Memory Metrics
// =============================================================================

var (
	// InsightsExtracted counts extracted insights by category.
	InsightsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_extracted_total",
			Help:      "Insights extracted from user messages",
		},
		[]string{"category"},
	)

	// MemoryWriteFailures counts failed insight persistence attempts.
	MemoryWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_write_failures_total",
			Help:      "Failed attempts to persist extracted insights",
		},
	)

	// RuleReloads counts insight rule reloads by result.
	RuleReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_reloads_total",
			Help:      "Insight rule table reloads",
		},
		[]string{"result"},
	)
)

// RecordTurn records a finished turn.
func RecordTurn(turnType string, latency time.Duration) {
	TurnsTotal.WithLabelValues(turnType).Inc()
	TurnLatency.WithLabelValues(turnType).Observe(latency.Seconds())
}

// RecordModelCall records one model call.
func RecordModelCall(provider, phase string, err error, latency time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	ModelCallLatency.WithLabelValues(SanitizeLabel(provider), phase, outcome).Observe(latency.Seconds())
}

// RecordFunctionCall records the outcome of a requested function call.
// Callers pass "unknown" for names outside the catalog to bound cardinality.
func RecordFunctionCall(function, outcome string) {
	FunctionCallsTotal.WithLabelValues(SanitizeLabel(function), outcome).Inc()
}

// RecordDispatch records dispatcher latency.
func RecordDispatch(function string, latency time.Duration) {
	DispatchLatency.WithLabelValues(SanitizeLabel(function)).Observe(latency.Seconds())
}

// RecordAnomaly records a protocol anomaly.
func RecordAnomaly(kind string) {
	ProtocolAnomalies.WithLabelValues(kind).Inc()
}

// RecordInsights records extracted insight categories.
func RecordInsights(categories []string) {
	for _, c := range categories {
		InsightsExtracted.WithLabelValues(SanitizeLabel(c)).Inc()
	}
}

// BreakerState reports each circuit breaker as 0 (closed), 1 (open) or
// 2 (half-open).
var BreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open",
	},
	[]string{"name"},
)

// RecordBreakerState publishes a breaker transition.
func RecordBreakerState(name string, state int) {
	BreakerState.WithLabelValues(SanitizeLabel(name)).Set(float64(state))
}
