package birdsapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
)

const testSpeciesURL = "https://api.test/api/species/byid/he/{id}"

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(hc.Close)

	client, err := NewClient(Config{
		SpeciesURL:   testSpeciesURL,
		ImageBaseURL: "https://img.test",
	}, hc)
	require.NoError(t, err)
	return client, transport
}

func TestLookupDecodesRecord(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, "https://api.test/api/species/byid/he/42",
		httpmock.NewStringResponder(http.StatusOK, `{
			"id": 42,
			"name": "דוכיפת",
			"latinName": "Upupa epops",
			"speciesFamilyName": "Upupidae",
			"description": "<p>National bird</p>",
			"conservationLevelIL": 3,
			"images": [{"path": "/media/a.jpg"}, {"path": ""}],
			"largeImage": [{"path": "https://cdn.test/b.png"}],
			"sounds": [{"path": 12345}, {"path": null}]
		}`))

	species, err := client.Lookup(context.Background(), 42)
	require.NoError(t, err)

	assert.EqualValues(t, 42, species.ID)
	assert.True(t, species.Valid())
	assert.Equal(t, "Upupidae", species.FamilyName)
	assert.Equal(t, FlexString("3"), species.Conservation)
	assert.Equal(t, []string{"/media/a.jpg", "https://cdn.test/b.png"}, species.ImagePaths())
	assert.Equal(t, []string{"12345"}, species.SoundClipIDs())
}

func TestLookupFallsBackToRequestedID(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, "https://api.test/api/species/byid/he/7",
		httpmock.NewStringResponder(http.StatusOK, `{"name": "x", "latinName": "y"}`))

	species, err := client.Lookup(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 7, species.ID)
}

func TestLookupErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		category errors.ErrorCategory
	}{
		{"not_found", http.StatusNotFound, "", errors.CategoryNotFound},
		{"server_error", http.StatusInternalServerError, "oops", errors.CategoryHTTP},
		{"html_body", http.StatusOK, "<html></html>", errors.CategoryFileParsing},
		{"json_array", http.StatusOK, "[1,2]", errors.CategoryFileParsing},
		{"json_null", http.StatusOK, "null", errors.CategoryFileParsing},
		{"truncated", http.StatusOK, `{"name": "x"`, errors.CategoryFileParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, transport := newMockClient(t)
			transport.RegisterResponder(http.MethodGet, "https://api.test/api/species/byid/he/1",
				httpmock.NewStringResponder(tt.status, tt.body))

			species, err := client.Lookup(context.Background(), 1)
			require.Error(t, err)
			assert.Nil(t, species)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, "https://api.test/api/species/byid/he/1",
		httpmock.NewErrorResponder(assert.AnError))

	_, err := client.Lookup(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.False(t, (*Species)(nil).Valid())
	assert.False(t, (&Species{Name: "  ", LatinName: "Upupa epops"}).Valid())
	assert.False(t, (&Species{Name: "דוכיפת"}).Valid())
	assert.True(t, (&Species{Name: "דוכיפת", LatinName: "Upupa epops"}).Valid())
}

func TestResolveImageURL(t *testing.T) {
	t.Parallel()

	client, _ := newMockClient(t)

	assert.Equal(t, "https://img.test/media/a.jpg", client.ResolveImageURL("/media/a.jpg"))
	assert.Equal(t, "https://img.test/media/a.jpg", client.ResolveImageURL("media/a.jpg"))
	assert.Equal(t, "https://cdn.test/b.png", client.ResolveImageURL("https://cdn.test/b.png"))
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	require.Error(t, err)

	_, err = NewClient(Config{ImageBaseURL: "not a url"}, httpclient.New(nil))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSpeciesURL(t *testing.T) {
	t.Parallel()

	client, _ := newMockClient(t)
	assert.Equal(t, "https://api.test/api/species/byid/he/99", client.SpeciesURL(99))
}
