// Package observability wires the Prometheus registry used by the pipeline stages.
package observability

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
	"github.com/tphakala/birddeck/internal/observability/metrics"
)

// Metrics holds the registry and all component metrics.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics
}

// NewMetrics creates a private registry with the Go runtime collectors and pipeline metrics.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	pipeline, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registry: registry,
		Pipeline: pipeline,
	}, nil
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// InstrumentClient records every request made by client under the given stage label.
func (m *Metrics) InstrumentClient(client *httpclient.Client, stage string) {
	if m == nil || client == nil {
		return
	}
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, _ error, elapsed time.Duration) {
		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		m.Pipeline.ObserveHTTP(stage, code, elapsed)
	})
}

// WriteTextfile writes the registry in text exposition format for the node-exporter textfile
// collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileError(err, path, 0)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("file_path", path).
			Build()
	}
	return nil
}
