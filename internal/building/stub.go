package building

import (
	"context"
	"strings"
	"sync"
)

// StubEstimator answers from memory for offline runs and tests.
type StubEstimator struct {
	mu      sync.Mutex
	answers map[string]*Attributes
	err     error
	calls   int
}

var _ Estimator = (*StubEstimator)(nil)

// NewStubEstimator returns an empty stub. Unknown addresses get empty attributes.
func NewStubEstimator() *StubEstimator {
	return &StubEstimator{answers: make(map[string]*Attributes)}
}

func stubKey(address, postalCode string) string {
	return strings.TrimSpace(address) + "|" + strings.TrimSpace(postalCode)
}

// Add registers an answer.
func (s *StubEstimator) Add(address, postalCode string, attrs Attributes) *StubEstimator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[stubKey(address, postalCode)] = &attrs
	return s
}

// FailWith makes every call return err.
func (s *StubEstimator) FailWith(err error) *StubEstimator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Calls returns the number of Estimate calls.
func (s *StubEstimator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Estimate implements Estimator.
func (s *StubEstimator) Estimate(ctx context.Context, address, postalCode string) (*Attributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(address) == "" || strings.TrimSpace(postalCode) == "" {
		return nil, ErrMissingInput
	}
	if s.err != nil {
		return nil, s.err
	}
	if a, ok := s.answers[stubKey(address, postalCode)]; ok {
		cp := *a
		return &cp, nil
	}
	return &Attributes{}, nil
}
