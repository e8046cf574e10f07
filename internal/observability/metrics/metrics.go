package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the booking assistant.
type AssistantMetrics struct {
	toolCallsTotal *prometheus.CounterVec
	turnsTotal     *prometheus.CounterVec
	toolRounds     prometheus.Histogram
	modelLatency   *prometheus.HistogramVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthylife",
			Subsystem: "assistant",
			Name:      "tool_calls_total",
			Help:      "Total tool calls dispatched, by tool and outcome",
		}, []string{"tool", "outcome"}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthylife",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Total conversation turns, by terminal state",
		}, []string{"state"}),
		toolRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "healthylife",
			Subsystem: "assistant",
			Name:      "tool_rounds",
			Help:      "Tool rounds executed per turn",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthylife",
			Subsystem: "assistant",
			Name:      "model_latency_seconds",
			Help:      "Latency of model completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.toolCallsTotal, m.turnsTotal, m.toolRounds, m.modelLatency)
	return m
}

func (m *AssistantMetrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// ObserveTurn records the terminal state of a turn and how many tool rounds it took.
func (m *AssistantMetrics) ObserveTurn(state string, rounds int) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state).Inc()
	m.toolRounds.Observe(float64(rounds))
}

func (m *AssistantMetrics) ObserveModelLatency(failed bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.modelLatency.WithLabelValues(status).Observe(seconds)
}
