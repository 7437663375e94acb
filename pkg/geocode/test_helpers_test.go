package geocode

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sells-group/dq-cli/internal/resilience"
)

// fastRetry keeps retry tests quick.
func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

// newGeoapifyServer starts a test server and returns a client pointed at it
// with pacing disabled.
func newGeoapifyServer(t *testing.T, h http.HandlerFunc, opts ...Option) *GeoapifyClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithRetry(fastRetry(1)),
	}
	return NewGeoapify("test-key", append(base, opts...)...)
}

func newGoogleServer(t *testing.T, h http.HandlerFunc, opts ...Option) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithRetry(fastRetry(1)),
	}
	return NewGoogle("test-key", append(base, opts...)...)
}
