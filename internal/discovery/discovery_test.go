package discovery

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/birdsapi"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
	"github.com/tphakala/birddeck/internal/logger"
)

// newSpeciesServer serves ids 2 and 5 as valid, 3 with an empty latin name, 4 as malformed
// JSON, 6 after a delay, and 404 for everything else.
func newSpeciesServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		switch id {
		case "2", "5":
			fmt.Fprintf(w, `{"id": %s, "name": "bird %s", "latinName": "Avis %s"}`, id, id, id)
		case "3":
			fmt.Fprint(w, `{"id": 3, "name": "bird", "latinName": "  "}`)
		case "4":
			fmt.Fprint(w, `{"id": 4, "name": `)
		case "6":
			time.Sleep(300 * time.Millisecond)
			fmt.Fprint(w, `{"id": 6, "name": "slow", "latinName": "Lentus"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestDiscoverer(t *testing.T, serverURL string, timeout time.Duration) *Discoverer {
	t.Helper()

	hc := httpclient.New(&httpclient.Config{})
	t.Cleanup(hc.Close)
	api, err := birdsapi.NewClient(birdsapi.Config{
		SpeciesURL:   serverURL + "/api/species/byid/he/{id}",
		ImageBaseURL: serverURL,
	}, hc)
	require.NoError(t, err)

	return New(api, Config{Workers: 4, Timeout: timeout},
		logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC), nil)
}

func TestDiscoverClassifiesIdentifiers(t *testing.T) {
	t.Parallel()

	server := newSpeciesServer(t)
	d := newTestDiscoverer(t, server.URL, 100*time.Millisecond)

	result, err := d.Discover(context.Background(), 1, 8)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 5}, result.IDs)
	assert.Equal(t, 8, result.Checked)
	assert.Equal(t, 2, result.Valid)
	assert.Equal(t, 6, result.Invalid)
}

func TestDiscoverSingleIdentifierRange(t *testing.T) {
	t.Parallel()

	server := newSpeciesServer(t)
	d := newTestDiscoverer(t, server.URL, time.Second)

	result, err := d.Discover(context.Background(), 5, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, result.IDs)
}

func TestDiscoverInvalidRange(t *testing.T) {
	t.Parallel()

	d := New(nil, Config{}, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC), nil)

	_, err := d.Discover(context.Background(), 10, 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = d.Discover(context.Background(), -1, 1)
	require.Error(t, err)
}

func TestDiscoverRejectsOversizedRange(t *testing.T) {
	t.Parallel()

	d := New(nil, Config{Workers: 1}, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC), nil)

	for _, r := range [][2]int{{0, math.MaxInt}, {0, MaxRange}, {math.MaxInt - MaxRange, math.MaxInt}} {
		var err error
		require.NotPanics(t, func() { _, err = d.Discover(context.Background(), r[0], r[1]) })
		require.Error(t, err, "range %d..%d", r[0], r[1])
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestDiscoverCancelled(t *testing.T) {
	t.Parallel()

	server := newSpeciesServer(t)
	d := newTestDiscoverer(t, server.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Discover(ctx, 1, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIDListRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "valid_species_ids.txt")
	require.NoError(t, WriteIDList(path, []int64{9, 2, 5}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2\n5\n9\n", string(data))

	ids, err := ReadIDList(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5, 9}, ids)
}

func TestWriteIDListOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, WriteIDList(path, []int64{1, 2, 3}))
	require.NoError(t, WriteIDList(path, nil))

	ids, err := ReadIDList(path)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReadIDListIgnoresJunk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("3\n\n  7 \nabc\n-4\n1.5\n3\n12\n"), 0o644))

	ids, err := ReadIDList(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7, 12}, ids)
}

func TestReadIDListMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadIDList(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDListMissing)
	assert.True(t, errors.IsCategory(err, errors.CategoryPrecondition))
}

func TestDiscoverKeepsEveryValidIdentifierUnderPacing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		fmt.Fprintf(w, `{"id": %s, "name": "bird %s", "latinName": "Avis %s"}`, id, id, id)
	}))
	t.Cleanup(server.Close)

	// 12 lookups at 10/s queue for over a second, five times the per-lookup timeout
	hc := httpclient.New(&httpclient.Config{RateLimit: 10})
	t.Cleanup(hc.Close)
	api, err := birdsapi.NewClient(birdsapi.Config{
		SpeciesURL:   server.URL + "/api/species/byid/he/{id}",
		ImageBaseURL: server.URL,
	}, hc)
	require.NoError(t, err)

	d := New(api, Config{Workers: 10, Timeout: 200 * time.Millisecond},
		logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC), nil)

	result, err := d.Discover(t.Context(), 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, result.Valid)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, result.IDs)
}
