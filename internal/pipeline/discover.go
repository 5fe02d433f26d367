package pipeline

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// emailTokenRe is deliberately permissive: it over-matches so that the page
// scan misses nothing, and every candidate is double-checked by the strict
// validator before use.
var emailTokenRe = regexp.MustCompile(`(?i)[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+`)

var validate = validator.New()

// ValidEmail reports whether s passes the strict email-syntax check.
func ValidEmail(s string) bool {
	return s != "" && validate.Var(s, "email") == nil
}

// Discoverer resolves contact emails for leads, fetching websites only when
// the raw source tag is unusable. All failures degrade to "not found".
type Discoverer struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewDiscoverer creates a Discoverer with the bounded timeout and redirect
// cap used for best-effort page scans.
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		client: &http.Client{
			Timeout: 8 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return eris.New("discover: too many redirects")
				}
				return nil
			},
		},
		userAgent:    "Mozilla/5.0 (LeadGenApp/1.0)",
		maxBodyBytes: 2 << 20,
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func (d *Discoverer) WithHTTPClient(hc *http.Client) *Discoverer {
	d.client = hc
	return d
}

// Resolve returns the contact email for a lead. A syntactically valid raw
// source email wins outright and skips the network entirely; otherwise the
// website is scanned best-effort.
func (d *Discoverer) Resolve(ctx context.Context, rawEmail, website string) (string, bool) {
	raw := strings.TrimSpace(rawEmail)
	if ValidEmail(raw) {
		return strings.ToLower(raw), true
	}
	return d.Discover(ctx, website)
}

// Discover fetches the website and scans the body for an address-like token
// that also passes the strict validator. Absent or non-absolute-HTTP URLs
// return immediately with no network call. Transport errors of any kind are
// absorbed: "no email found" is an expected outcome, not an error.
func (d *Discoverer) Discover(ctx context.Context, website string) (string, bool) {
	if website == "" || !strings.HasPrefix(website, "http") {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, website, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		zap.L().Debug("discover: fetch failed",
			zap.String("website", website),
			zap.Error(err),
		)
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBodyBytes))
	if err != nil {
		return "", false
	}

	return scanForEmail(body)
}

// scanForEmail lowercases and de-duplicates regex matches, returning the
// first one that survives strict validation.
func scanForEmail(body []byte) (string, bool) {
	matches := emailTokenRe.FindAll(body, -1)
	if len(matches) == 0 {
		return "", false
	}

	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		candidate := strings.ToLower(strings.TrimSpace(string(m)))
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		if ValidEmail(candidate) {
			return candidate, true
		}
	}

	return "", false
}
