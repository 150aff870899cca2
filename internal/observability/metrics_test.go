package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/httpclient"
)

func TestInstrumentClientCountsRequests(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	m, err := NewMetrics()
	require.NoError(t, err)

	client := httpclient.New(&httpclient.Config{})
	defer client.Close()
	m.InstrumentClient(client, "discover")

	_, err = client.GetBody(context.Background(), server.URL+"/ok", 0)
	require.NoError(t, err)
	_, err = client.GetBody(context.Background(), server.URL+"/missing", 0)
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Pipeline.HTTPRequests.WithLabelValues("discover", "2xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Pipeline.HTTPRequests.WithLabelValues("discover", "4xx")), 0)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Pipeline.RecordUnit("deck", "success")

	path := filepath.Join(t.TempDir(), "textfile", "birddeck.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `birddeck_units_total{outcome="success",stage="deck"} 1`)
}

func TestWriteTextfileDisabled(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	assert.NoError(t, m.WriteTextfile(""))

	var nilMetrics *Metrics
	assert.NoError(t, nilMetrics.WriteTextfile("/nonexistent/x.prom"))
}
