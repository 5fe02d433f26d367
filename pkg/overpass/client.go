// Package overpass queries the Overpass API for OpenStreetMap business data,
// failing over across interchangeable mirror endpoints.
package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gconnect/leadgen-cli/internal/resilience"
)

// ErrUpstreamUnavailable is returned when every mirror has exhausted its
// retry budget without producing a usable element list.
var ErrUpstreamUnavailable = eris.New("overpass: all mirrors exhausted")

// DefaultMirrors lists the public Overpass endpoints in priority order.
var DefaultMirrors = []string{
	"https://overpass.kumi.systems/api/interpreter",
	"https://z.overpass-api.de/api/interpreter",
	"https://api.openstreetmap.fr/oapi/interpreter",
	"https://overpass.openstreetmap.ie/api/interpreter",
	"https://overpass-api.de/api/interpreter",
}

// Element is a single OSM element from an Overpass response. Only the tag
// map matters downstream; coordinates are kept for completeness.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat,omitempty"`
	Lon  float64           `json:"lon,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

// Response is the JSON envelope returned by the Overpass interpreter.
type Response struct {
	Elements []Element `json:"elements"`
}

// Client fetches raw business elements for an Overpass QL query.
type Client interface {
	// Fetch posts the query to each mirror in turn and returns the first
	// non-empty element list.
	Fetch(ctx context.Context, query string) ([]Element, error)
}

// Option configures the client.
type Option func(*client)

// WithMirrors overrides the mirror list. Order is priority order.
func WithMirrors(mirrors []string) Option {
	return func(c *client) {
		c.mirrors = mirrors
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy sets the per-mirror retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *client) {
		c.policy = p
	}
}

// WithUserAgent sets the User-Agent header sent to mirrors.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

type client struct {
	httpClient *http.Client
	mirrors    []string
	policy     resilience.Policy
	userAgent  string
}

// NewClient creates an Overpass client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 180 * time.Second},
		mirrors:    DefaultMirrors,
		policy:     resilience.FixedDelay{Attempts: 6, Pause: 15 * time.Second},
		userAgent:  "leadgen-cli/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch iterates mirrors in fixed priority order, retrying each under the
// configured policy. A network error, a non-2xx status, and a 200 with an
// empty element list all count the same: the attempt produced no usable
// data. Only exhaustion of every mirror is an error.
func (c *client) Fetch(ctx context.Context, query string) ([]Element, error) {
	var lastErr error

	for _, mirror := range c.mirrors {
		elements, err := resilience.DoVal(ctx, c.policy,
			resilience.RetryLogger("overpass", mirror),
			func(ctx context.Context) ([]Element, error) {
				return c.post(ctx, mirror, query)
			})
		if err == nil {
			zap.L().Info("overpass: fetched elements",
				zap.String("mirror", mirror),
				zap.Int("count", len(elements)),
			)
			return elements, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "overpass: fetch cancelled")
		}

		zap.L().Warn("overpass: mirror exhausted",
			zap.String("mirror", mirror),
			zap.Error(err),
		)
	}

	zap.L().Error("overpass: no mirror produced data", zap.Error(lastErr))
	return nil, ErrUpstreamUnavailable
}

// post runs a single attempt against one mirror.
func (c *client) post(ctx context.Context, mirror, query string) ([]Element, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mirror, strings.NewReader(query))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: post query")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, eris.Errorf("overpass: status %d from %s", resp.StatusCode, mirror)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}

	if len(parsed.Elements) == 0 {
		return nil, eris.Errorf("overpass: empty element list from %s", mirror)
	}

	return parsed.Elements, nil
}
