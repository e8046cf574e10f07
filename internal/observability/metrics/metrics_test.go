package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssistantMetrics(reg)

	m.ObserveToolCall("book_appointment", "success")
	m.ObserveToolCall("book_appointment", "success")
	m.ObserveToolCall("book_appointment", "collision")
	m.ObserveTurn("done", 2)
	m.ObserveTurn("failed", 0)
	m.ObserveModelLatency(false, 0.4)
	m.ObserveModelLatency(true, 1.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCallsTotal.WithLabelValues("book_appointment", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCallsTotal.WithLabelValues("book_appointment", "collision")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("done")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.modelLatency))
}

func TestAssistantMetricsToolRoundsHistogram(t *testing.T) {
	m := NewAssistantMetrics(prometheus.NewRegistry())
	m.ObserveTurn("done", 0)
	m.ObserveTurn("done", 3)
	m.ObserveTurn("failed", 8)

	var pb dto.Metric
	require.NoError(t, m.toolRounds.Write(&pb))
	hist := pb.GetHistogram()
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), hist.GetSampleCount())
	assert.Equal(t, 11.0, hist.GetSampleSum())

	cumulative := map[float64]uint64{}
	for _, b := range hist.GetBucket() {
		cumulative[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(1), cumulative[0])
	assert.Equal(t, uint64(2), cumulative[3])
	assert.Equal(t, uint64(3), cumulative[8])
}

func TestAssistantMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	defer func() { prometheus.DefaultRegisterer = prev }()

	m := NewAssistantMetrics(nil)
	m.ObserveTurn("done", 1)
	assert.Equal(t, 1, testutil.CollectAndCount(m.turnsTotal))
}

func TestAssistantMetricsNilSafe(t *testing.T) {
	var m *AssistantMetrics
	m.ObserveToolCall("tool", "outcome")
	m.ObserveTurn("done", 1)
	m.ObserveModelLatency(false, 0.1)
}
