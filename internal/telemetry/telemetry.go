// Package telemetry carries the service's prometheus metrics and the
// LLM cost tracker.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_requests_total",
		Help: "Planning API requests by handler and outcome.",
	}, []string{"handler", "outcome"})

	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_tool_invocations_total",
		Help: "Agent tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	AgentRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planning_agent_rounds",
		Help:    "Tool-calling rounds consumed per agent turn.",
		Buckets: prometheus.LinearBuckets(1, 4, 10),
	})

	LLMTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_llm_tokens_total",
		Help: "LLM tokens by direction (input/output).",
	}, []string{"direction"})

	LLMCostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planning_llm_cost_usd_total",
		Help: "Accumulated LLM spend in USD.",
	})
)

// CostTracker accumulates per-call LLM usage. When a log file is
// configured each call is appended as a JSON line.
type CostTracker struct {
	mu        sync.Mutex
	enabled   bool
	logFile   string
	totalCost float64
	totalIn   int64
	totalOut  int64
}

func NewCostTracker(enabled bool, logFile string) *CostTracker {
	return &CostTracker{enabled: enabled, logFile: logFile}
}

// Record accounts one model call.
func (t *CostTracker) Record(model string, inputTokens, outputTokens int64, cost float64) {
	if t == nil || !t.enabled {
		return
	}
	LLMTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	LLMTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	LLMCostTotal.Add(cost)

	t.mu.Lock()
	t.totalCost += cost
	t.totalIn += inputTokens
	t.totalOut += outputTokens
	logFile := t.logFile
	t.mu.Unlock()

	if logFile == "" {
		return
	}
	entry, err := json.Marshal(map[string]interface{}{
		"ts":            time.Now().Format(time.RFC3339),
		"model":         model,
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"cost_usd":      cost,
	})
	if err != nil {
		return
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, string(entry))
}

// Totals returns the accumulated cost and token counts.
func (t *CostTracker) Totals() (cost float64, inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCost, t.totalIn, t.totalOut
}
