package searchagent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	agentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailai_agent_runs_total",
			Help: "Search agent provider invocations by outcome",
		},
		[]string{"provider", "status"},
	)

	agentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailai_agent_run_duration_seconds",
			Help:    "Duration of one provider invocation including tool rounds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailai_tool_calls_total",
			Help: "Search tool calls by tool and outcome",
		},
		[]string{"tool", "status"},
	)

	agentFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailai_agent_fallbacks_total",
			Help: "Runs that switched to the secondary provider",
		},
	)
)
