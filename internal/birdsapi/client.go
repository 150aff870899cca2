// Package birdsapi is a client for the birds.org.il species lookup endpoint.
package birdsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
)

// maxBodySize caps a species payload
const maxBodySize = 4 << 20

// Config configures the lookup client
type Config struct {
	SpeciesURL   string // URL template containing {id}
	ImageBaseURL string // base for relative image paths
}

// Client looks up species records by identifier
type Client struct {
	http       *httpclient.Client
	speciesURL string
	imageBase  *url.URL
}

// NewClient creates a lookup client on top of a shared HTTP client
func NewClient(cfg Config, httpClient *httpclient.Client) (*Client, error) {
	if cfg.SpeciesURL == "" {
		cfg.SpeciesURL = conf.DefaultSpeciesURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = conf.DefaultImageBaseURL
	}
	if httpClient == nil {
		return nil, errors.Newf("birdsapi: http client is required").
			Category(errors.CategoryConfiguration).
			Build()
	}

	base, err := url.Parse(cfg.ImageBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("invalid image base URL %q", cfg.ImageBaseURL).
			Category(errors.CategoryConfiguration).
			Context("image_base_url", cfg.ImageBaseURL).
			Build()
	}

	return &Client{
		http:       httpClient,
		speciesURL: cfg.SpeciesURL,
		imageBase:  base,
	}, nil
}

// SpeciesURL returns the lookup URL for id
func (c *Client) SpeciesURL(id int64) string {
	return conf.ExpandTemplate(c.speciesURL, strconv.FormatInt(id, 10))
}

// Lookup fetches and decodes the record for id.
//
// Transport failures are categorized as network errors, non-2xx responses carry a
// *httpclient.StatusError and undecodable bodies are file-parsing errors. When the payload
// has no usable id the requested one is filled in.
func (c *Client) Lookup(ctx context.Context, id int64) (*Species, error) {
	endpoint := c.SpeciesURL(id)
	body, err := c.http.GetBody(ctx, endpoint, maxBodySize)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.Newf("species %d: response is not a JSON object", id).
			Category(errors.CategoryFileParsing).
			Context("species_id", id).
			Context("url", endpoint).
			Build()
	}

	var species Species
	if err := json.Unmarshal(trimmed, &species); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("species_id", id).
			Context("url", endpoint).
			Build()
	}
	if species.ID <= 0 {
		species.ID = FlexInt(id)
	}
	return &species, nil
}

// ResolveImageURL turns an image path from a payload into an absolute URL.
// Absolute URLs are returned unchanged.
func (c *Client) ResolveImageURL(path string) string {
	path = strings.TrimSpace(path)
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	if ref.IsAbs() {
		return path
	}
	return c.imageBase.ResolveReference(ref).String()
}
