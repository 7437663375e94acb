package geocode

import (
	"context"
	"fmt"
	"sync"
)

// StubProvider is an in-memory Client for offline runs and tests. Lookups not
// present in the maps return an unmatched result.
type StubProvider struct {
	mu       sync.Mutex
	forward  map[string]*Result
	reverse  map[string]*ReverseResult
	err      error
	forwards int
	reverses int
}

var _ Client = (*StubProvider)(nil)

// NewStubProvider returns an empty stub.
func NewStubProvider() *StubProvider {
	return &StubProvider{
		forward: make(map[string]*Result),
		reverse: make(map[string]*ReverseResult),
	}
}

// StubKey is the forward lookup key used by the stub.
func StubKey(street, city, postalCode string) string {
	return street + "|" + city + "|" + postalCode
}

func reverseKey(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

// AddForward registers a forward answer.
func (s *StubProvider) AddForward(street, city, postalCode string, lat, lon float64, confidence *float64) *StubProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forward[StubKey(street, city, postalCode)] = &Result{
		Latitude:   lat,
		Longitude:  lon,
		Confidence: confidence,
		Source:     "stub",
		Matched:    true,
	}
	return s
}

// AddReverse registers a reverse answer.
func (s *StubProvider) AddReverse(lat, lon float64, city, postalCode string) *StubProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reverse[reverseKey(lat, lon)] = &ReverseResult{City: city, PostalCode: postalCode, Source: "stub", Matched: true}
	return s
}

// FailWith makes every call return err.
func (s *StubProvider) FailWith(err error) *StubProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Calls returns how many forward and reverse lookups were made.
func (s *StubProvider) Calls() (forward, reverse int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwards, s.reverses
}

// Geocode implements Forwarder.
func (s *StubProvider) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwards++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.forward[StubKey(addr.Street, addr.City, addr.PostalCode)]; ok {
		cp := *r
		return &cp, nil
	}
	return &Result{Matched: false, Source: "stub"}, nil
}

// ReverseGeocode implements Reverser.
func (s *StubProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reverses++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.reverse[reverseKey(lat, lon)]; ok {
		cp := *r
		return &cp, nil
	}
	return &ReverseResult{Matched: false, Source: "stub"}, nil
}
