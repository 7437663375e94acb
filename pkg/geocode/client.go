// Package geocode resolves addresses to coordinates (forward) and coordinates
// back to city and postal code (reverse). Geoapify is the primary provider;
// Google can be chained behind it as a forward-only fallback.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/dq-cli/internal/resilience"
)

// Forwarder geocodes a single address. A lookup that finds nothing returns a
// Result with Matched=false and a nil error; errors are reserved for transport,
// status and decoding failures.
type Forwarder interface {
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// Reverser resolves coordinates to the administrative city and postal code.
type Reverser interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*ReverseResult, error)
}

// Client does both directions.
type Client interface {
	Forwarder
	Reverser
}

// AddressInput represents an address to geocode.
type AddressInput struct {
	ID         string // Optional identifier for log correlation
	Street     string
	City       string
	PostalCode string
	Country    string // Country context appended to the free-text query
}

// Result holds the forward geocoding output for an address.
type Result struct {
	Latitude   float64
	Longitude  float64
	Confidence *float64 // provider match confidence in [0,1]; nil when not reported
	Source     string   // "geoapify", "google" or "stub"
	Quality    string   // provider-specific match type, e.g. "full_match", "rooftop"
	Matched    bool
}

// Option configures the HTTP-backed providers.
type Option func(*httpOptions)

type httpOptions struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.Breaker
	lang       string
}

func defaultHTTPOptions() httpOptions {
	return httpOptions{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1), // free tiers are paced to one call per second
		retry:      resilience.DefaultRetryConfig(),
	}
}

// WithBaseURL overrides the provider endpoint (used by tests and proxies).
func WithBaseURL(u string) Option {
	return func(o *httpOptions) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *httpOptions) {
		o.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second pacing for provider calls.
func WithRateLimit(rps float64) Option {
	return func(o *httpOptions) {
		if rps <= 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy applied to transient provider failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *httpOptions) {
		o.retry = cfg
	}
}

// WithBreaker guards provider calls with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(o *httpOptions) {
		o.breaker = b
	}
}

// WithLanguage sets the response language (Geoapify "lang").
func WithLanguage(lang string) Option {
	return func(o *httpOptions) {
		o.lang = lang
	}
}

// formatQuery builds "street, postal city, country", skipping blank parts.
func formatQuery(addr AddressInput) string {
	locality := strings.TrimSpace(strings.TrimSpace(addr.PostalCode) + " " + strings.TrimSpace(addr.City))
	parts := []string{addr.Street, locality, addr.Country}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// hasAddress reports whether there is anything to look up besides the country.
func hasAddress(addr AddressInput) bool {
	return strings.TrimSpace(addr.Street) != "" || strings.TrimSpace(addr.City) != "" || strings.TrimSpace(addr.PostalCode) != ""
}
