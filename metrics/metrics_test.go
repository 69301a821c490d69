package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}

	r.IncCounter("test_counter", map[string]string{"tag": "value"})
	r.ObserveHistogram("test_histogram", 1.5, map[string]string{"tag": "value"})
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus("library", reg)

	t.Run("IncCounter", func(t *testing.T) {
		tags := map[string]string{"tag1": "value1", "tag2": "value2"}

		m.IncCounter("test_counter", tags)
		m.IncCounter("test_counter", tags)

		vec, ok := m.counters["test_counter"]
		assert.True(t, ok, "counter should be registered")
		assert.Equal(t, float64(2), testutil.ToFloat64(vec.With(tags)))
	})

	t.Run("ObserveHistogram", func(t *testing.T) {
		tags := map[string]string{"tag1": "value1"}

		m.ObserveHistogram("test_histogram", 2.5, tags)

		_, ok := m.histograms["test_histogram"]
		assert.True(t, ok, "histogram should be registered")
		assert.Equal(t, 1, testutil.CollectAndCount(reg, "library_test_histogram"))
	})

	t.Run("a second recorder on the same registry reuses the vectors", func(t *testing.T) {
		other := NewPrometheus("library", reg)
		tags := map[string]string{"tag1": "value1", "tag2": "value2"}

		assert.NotPanics(t, func() { other.IncCounter("test_counter", tags) })
		assert.Equal(t, float64(3), testutil.ToFloat64(other.counters["test_counter"].With(tags)))
	})
}
