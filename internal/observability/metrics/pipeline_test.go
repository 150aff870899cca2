package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetricsRecording(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	m.RecordUnit("fetch", OutcomeSuccess)
	m.RecordUnit("fetch", OutcomeSuccess)
	m.RecordUnit("fetch", OutcomeSkipped)
	m.ObserveHTTP("fetch", 200, 120*time.Millisecond)
	m.ObserveHTTP("fetch", 404, 10*time.Millisecond)
	m.ObserveHTTP("fetch", 0, time.Second)
	m.AddBytes("image", 2048)
	m.AddBytes("image", 0)
	m.StageFinished("fetch", 3*time.Second, errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.UnitsTotal.WithLabelValues("fetch", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UnitsTotal.WithLabelValues("fetch", OutcomeSkipped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("fetch", "2xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("fetch", "4xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("fetch", "error")), 0)
	assert.InDelta(t, 2048, testutil.ToFloat64(m.BytesDownloaded.WithLabelValues("image")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.StageDuration.WithLabelValues("fetch")), 0.001)
	assert.Positive(t, testutil.ToFloat64(m.StageLastRun.WithLabelValues("fetch", OutcomeFailed)))
}

func TestPipelineMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	_, err = NewPipelineMetrics(registry)
	assert.Error(t, err)
}

func TestNilPipelineMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordUnit("media", OutcomeFailed)
		m.ObserveHTTP("media", 500, time.Second)
		m.AddBytes("sound", 10)
		m.StageFinished("media", time.Second, nil)
	})
}
