package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// configOption adjusts the DefaultConfig used by newTestClient
type configOption func(*Config)

func withRateLimit(rps float64) configOption {
	return func(c *Config) { c.RateLimit = rps }
}

func withDefaultTimeout(d time.Duration) configOption {
	return func(c *Config) { c.DefaultTimeout = d }
}

func withTransport(rt http.RoundTripper) configOption {
	return func(c *Config) { c.Transport = rt }
}

// newTestClient creates a Client from DefaultConfig plus opts and closes it on cleanup.
func newTestClient(t *testing.T, opts ...configOption) *Client {
	t.Helper()
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newTestClientWithConfig(t, &cfg)
}

// newTestClientWithConfig creates a Client from cfg as given and closes it on cleanup.
func newTestClientWithConfig(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(client.Close)
	return client
}

// newTestServer creates a test HTTP server and registers cleanup.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// closeResponseBody drains and closes a response body, tolerating nil responses.
func closeResponseBody(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		t.Logf("failed to close response body: %v", err)
	}
}

// getBodiesConcurrently issues n GetBody calls at once through client, each with ctxFn's
// context, and returns one error slot per call.
func getBodiesConcurrently(client *Client, url string, n int, ctxFn func() context.Context) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.GetBody(ctxFn(), url, 0)
		}()
	}
	wg.Wait()
	return errs
}
