// Package metrics provides custom Prometheus metrics for the birddeck pipeline stages.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Unit outcomes recorded by every stage
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// PipelineMetrics contains Prometheus metrics shared by the pipeline stages.
// All methods are safe to call on a nil receiver, which disables recording.
type PipelineMetrics struct {
	UnitsTotal      *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	BytesDownloaded *prometheus.CounterVec
	StageDuration   *prometheus.GaugeVec
	StageLastRun    *prometheus.GaugeVec
}

// NewPipelineMetrics creates the pipeline metrics and registers them on registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.UnitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birddeck_units_total",
		Help: "Units of work processed, by stage and outcome.",
	}, []string{"stage", "outcome"})

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birddeck_http_requests_total",
		Help: "Outbound HTTP requests, by stage and status class.",
	}, []string{"stage", "status"})

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "birddeck_http_request_duration_seconds",
		Help:    "Time until response headers of outbound HTTP requests.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"stage"})

	m.BytesDownloaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birddeck_media_bytes_downloaded_total",
		Help: "Media bytes written to disk, by kind.",
	}, []string{"kind"})

	m.StageDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "birddeck_stage_duration_seconds",
		Help: "Wall time of the last run of each stage.",
	}, []string{"stage"})

	m.StageLastRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "birddeck_stage_last_run_timestamp_seconds",
		Help: "Unix time the stage last finished, by result.",
	}, []string{"stage", "result"})
}

// RecordUnit counts one unit of work.
func (m *PipelineMetrics) RecordUnit(stage, outcome string) {
	if m == nil {
		return
	}
	m.UnitsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveHTTP records one outbound request. statusCode 0 means a transport failure.
func (m *PipelineMetrics) ObserveHTTP(stage string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(stage, statusClass(statusCode)).Inc()
	m.HTTPDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// AddBytes adds downloaded bytes for a media kind ("image" or "sound").
func (m *PipelineMetrics) AddBytes(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesDownloaded.WithLabelValues(kind).Add(float64(n))
}

// StageFinished records the stage duration and completion time.
func (m *PipelineMetrics) StageFinished(stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := OutcomeSuccess
	if err != nil {
		result = OutcomeFailed
	}
	m.StageDuration.WithLabelValues(stage).Set(elapsed.Seconds())
	m.StageLastRun.WithLabelValues(stage, result).SetToCurrentTime()
}

// statusClass maps a status code to "2xx", "4xx", ... or "error" for transport failures
func statusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.UnitsTotal.Collect(ch)
	m.HTTPRequests.Collect(ch)
	m.HTTPDuration.Collect(ch)
	m.BytesDownloaded.Collect(ch)
	m.StageDuration.Collect(ch)
	m.StageLastRun.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.UnitsTotal.Describe(ch)
	m.HTTPRequests.Describe(ch)
	m.HTTPDuration.Describe(ch)
	m.BytesDownloaded.Describe(ch)
	m.StageDuration.Describe(ch)
	m.StageLastRun.Describe(ch)
}
