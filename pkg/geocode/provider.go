package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Provider represents a single forward geocoding backend.
type Provider interface {
	Forwarder
	Name() string
	Available() bool
}

// Compile-time interface checks.
var (
	_ Provider = (*GeoapifyClient)(nil)
	_ Provider = (*GoogleClient)(nil)
	_ Client   = (*GeoapifyClient)(nil)
	_ Client   = (*CascadeClient)(nil)
)

// ErrNoProvider is returned when no configured provider can serve a call.
var ErrNoProvider = eris.New("geocode: no provider available")

// CascadeClient tries forward providers in order until one matches. Reverse
// lookups go to the first available provider that supports them.
type CascadeClient struct {
	providers []Provider
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers ...Provider) *CascadeClient {
	return &CascadeClient{providers: providers}
}

// Geocode implements Forwarder. A provider error moves on to the next
// provider; the last error is returned only if nobody answered at all.
func (c *CascadeClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	var lastResult *Result
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, addr)
		if err != nil {
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result != nil && result.Matched {
			return result, nil
		}
		if result != nil {
			lastResult = result
		}
	}

	if lastResult != nil {
		return &Result{Matched: false, Source: lastResult.Source}, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoProvider
}

// ReverseGeocode implements Reverser.
func (c *CascadeClient) ReverseGeocode(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	for _, p := range c.providers {
		r, ok := p.(Reverser)
		if !ok || !p.Available() {
			continue
		}
		return r.ReverseGeocode(ctx, lat, lon)
	}
	return nil, ErrNoProvider
}

// Available reports whether at least one provider is usable.
func (c *CascadeClient) Available() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}
