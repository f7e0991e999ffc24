package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmcoach_mcp_tool_calls_total",
			Help: "Catalog functions invoked through the MCP endpoint, by outcome",
		},
		[]string{"tool_name", "outcome"},
	)

	toolRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmcoach_mcp_tool_rejections_total",
			Help: "MCP tool calls refused before dispatch, by reason",
		},
		[]string{"tool_name", "reason"},
	)

	toolLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmcoach_mcp_tool_latency_seconds",
			Help:    "Latency of dispatched MCP tool calls in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"tool_name"},
	)
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"

	reasonBadJSON     = "bad_json"
	reasonBadArgs     = "invalid_arguments"
	reasonMissingUser = "missing_user"

	// unknownTool labels names outside the catalog so callers cannot
	// grow the label set.
	unknownTool = "unknown"
)

// toolCall tracks one MCP call from receipt to result.
type toolCall struct {
	tool  string
	start time.Time
}

func (s *Server) beginCall(name string) toolCall {
	if !s.catalog.Has(name) {
		name = unknownTool
	}
	return toolCall{tool: name, start: time.Now()}
}

func (c toolCall) reject(reason string) {
	toolRejections.WithLabelValues(c.tool, reason).Inc()
	toolCalls.WithLabelValues(c.tool, outcomeRejected).Inc()
}

func (c toolCall) finish(err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	toolCalls.WithLabelValues(c.tool, outcome).Inc()
	toolLatency.WithLabelValues(c.tool).Observe(time.Since(c.start).Seconds())
}
