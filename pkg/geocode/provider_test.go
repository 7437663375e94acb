package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedStub wraps StubProvider with a Provider identity.
type namedStub struct {
	*StubProvider
	name      string
	available bool
}

func (n *namedStub) Name() string    { return n.name }
func (n *namedStub) Available() bool { return n.available }

func conf(v float64) *float64 { return &v }

func TestCascade_FirstMatchWins(t *testing.T) {
	first := &namedStub{StubProvider: NewStubProvider().AddForward("Zeil 1", "Frankfurt", "", 50.11, 8.68, conf(0.9)), name: "a", available: true}
	second := &namedStub{StubProvider: NewStubProvider().AddForward("Zeil 1", "Frankfurt", "", 1, 1, conf(0.1)), name: "b", available: true}

	c := NewCascadeClient(first, second)
	result, err := c.Geocode(context.Background(), AddressInput{Street: "Zeil 1", City: "Frankfurt"})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 50.11, result.Latitude, 1e-9)

	f, _ := second.Calls()
	assert.Zero(t, f)
}

func TestCascade_FallsThroughOnMissAndError(t *testing.T) {
	failing := &namedStub{StubProvider: NewStubProvider().FailWith(errors.New("boom")), name: "a", available: true}
	missing := &namedStub{StubProvider: NewStubProvider(), name: "b", available: true}
	hit := &namedStub{StubProvider: NewStubProvider().AddForward("Zeil 1", "Frankfurt", "", 50.11, 8.68, nil), name: "c", available: true}

	c := NewCascadeClient(failing, missing, hit)
	result, err := c.Geocode(context.Background(), AddressInput{Street: "Zeil 1", City: "Frankfurt"})
	require.NoError(t, err)
	assert.True(t, result.Matched)
}

func TestCascade_AllMiss(t *testing.T) {
	failing := &namedStub{StubProvider: NewStubProvider().FailWith(errors.New("boom")), name: "a", available: true}
	missing := &namedStub{StubProvider: NewStubProvider(), name: "b", available: true}

	result, err := NewCascadeClient(failing, missing).Geocode(context.Background(), AddressInput{City: "X"})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestCascade_AllError(t *testing.T) {
	failing := &namedStub{StubProvider: NewStubProvider().FailWith(errors.New("boom")), name: "a", available: true}

	_, err := NewCascadeClient(failing).Geocode(context.Background(), AddressInput{City: "X"})
	require.EqualError(t, err, "boom")
}

func TestCascade_NoneAvailable(t *testing.T) {
	off := &namedStub{StubProvider: NewStubProvider(), name: "a", available: false}
	c := NewCascadeClient(off)
	assert.False(t, c.Available())

	_, err := c.Geocode(context.Background(), AddressInput{City: "X"})
	require.ErrorIs(t, err, ErrNoProvider)
	_, err = c.ReverseGeocode(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestCascade_ReverseUsesFirstReverser(t *testing.T) {
	google := NewGoogle("key")
	rev := &namedStub{StubProvider: NewStubProvider().AddReverse(52.52, 13.405, "Berlin", "10178"), name: "stub", available: true}

	result, err := NewCascadeClient(google, rev).ReverseGeocode(context.Background(), 52.52, 13.405)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", result.City)
	assert.Equal(t, "10178", result.PostalCode)
}

func TestStubProvider(t *testing.T) {
	s := NewStubProvider().
		AddForward("Zeil 1", "Frankfurt", "60313", 50.11, 8.68, conf(0.85)).
		AddReverse(50.11, 8.68, "Frankfurt am Main", "60313")

	got, err := s.Geocode(context.Background(), AddressInput{Street: "Zeil 1", City: "Frankfurt", PostalCode: "60313"})
	require.NoError(t, err)
	assert.True(t, got.Matched)
	assert.InDelta(t, 0.85, *got.Confidence, 1e-9)

	miss, err := s.Geocode(context.Background(), AddressInput{Street: "Zeil 2", City: "Frankfurt"})
	require.NoError(t, err)
	assert.False(t, miss.Matched)

	rev, err := s.ReverseGeocode(context.Background(), 50.11, 8.68)
	require.NoError(t, err)
	assert.Equal(t, "Frankfurt am Main", rev.City)

	f, r := s.Calls()
	assert.Equal(t, 2, f)
	assert.Equal(t, 1, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Geocode(ctx, AddressInput{City: "X"})
	require.ErrorIs(t, err, context.Canceled)
}
