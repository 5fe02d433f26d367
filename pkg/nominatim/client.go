// Package nominatim resolves free-text place names to Overpass area
// identifiers via the OSM Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrAreaNotFound is returned when Nominatim has no match for a place name.
var ErrAreaNotFound = eris.New("nominatim: area not found")

// areaIDOffset converts an OSM relation id into an Overpass area id.
const areaIDOffset = 3600000000

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client resolves place names to Overpass-usable area ids.
type Client interface {
	// ResolveArea returns the Overpass area id for the best match of city.
	ResolveArea(ctx context.Context, city string) (int64, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the Nominatim endpoint.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = base
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent with contact details.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a Nominatim client. Requests are limited to 1/s per the
// public instance's usage policy.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  "leadgen-cli/1.0 (contact@gconnectt.com)",
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResult struct {
	OSMID       int64  `json:"osm_id"`
	OSMType     string `json:"osm_type"`
	DisplayName string `json:"display_name"`
}

// ResolveArea looks up the best city match and derives its Overpass area id.
func (c *client) ResolveArea(ctx context.Context, city string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "nominatim: rate limit wait")
	}

	q := url.Values{}
	q.Set("city", city)
	q.Set("format", "json")
	q.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, eris.Wrap(err, "nominatim: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "nominatim: search")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("nominatim: status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, eris.Wrap(err, "nominatim: decode response")
	}

	if len(results) == 0 {
		return 0, eris.Wrapf(ErrAreaNotFound, "city %q", city)
	}

	return results[0].OSMID + areaIDOffset, nil
}
