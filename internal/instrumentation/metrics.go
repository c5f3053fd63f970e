package instrumentation

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the MCP service.
type Metrics struct {
	ToolCalls        *prometheus.CounterVec
	ToolLatencyMs    *prometheus.HistogramVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	Truncations      *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "binance_mcp_tool_calls_total",
			Help: "Total number of tool invocations by tool and outcome",
		}, []string{"tool", "status"}),

		ToolLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binance_mcp_tool_latency_ms",
			Help:    "End-to-end tool invocation latency in milliseconds",
			Buckets: []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"tool"}),

		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "binance_mcp_upstream_requests_total",
			Help: "Total number of Binance REST requests by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),

		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binance_mcp_upstream_latency_ms",
			Help:    "Binance REST request latency in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"endpoint"}),

		Truncations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "binance_mcp_truncations_total",
			Help: "Total number of tool outputs cut by the character limit",
		}, []string{"tool"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "binance_mcp_errors_total",
			Help: "Total number of errors by component and type",
		}, []string{"component", "error_type"}),
	}
}

// RecordToolCall records one finished tool invocation.
func (m *Metrics) RecordToolCall(tool, status string, elapsed time.Duration) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolLatencyMs.WithLabelValues(tool).Observe(float64(elapsed.Milliseconds()))
}

// ObserveUpstream implements binance.Observer. A zero status is recorded as
// "error" (no HTTP response received).
func (m *Metrics) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequests.WithLabelValues(endpoint, label).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(float64(elapsed.Milliseconds()))
}

// RecordTruncation increments the truncation counter for tool.
func (m *Metrics) RecordTruncation(tool string) {
	m.Truncations.WithLabelValues(tool).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
