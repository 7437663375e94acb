package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dq-cli/pkg/geocode"
)

type flakyForwarder struct {
	calls atomic.Int32
}

func (f *flakyForwarder) Geocode(context.Context, geocode.AddressInput) (*geocode.Result, error) {
	if f.calls.Add(1) == 1 {
		return nil, errors.New("timeout")
	}
	return &geocode.Result{Latitude: 1, Longitude: 2, Matched: true}, nil
}

func TestLookupCache_ErrorsAreNotCached(t *testing.T) {
	fwd := &flakyForwarder{}
	c := newLookupCache(fwd)
	addr := geocode.AddressInput{Street: "Zeil 1", City: "Frankfurt"}

	_, err := c.Geocode(context.Background(), addr)
	require.Error(t, err)

	r, err := c.Geocode(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, r.Matched)

	r, err = c.Geocode(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, r.Matched)

	assert.Equal(t, int32(2), fwd.calls.Load())
	calls, hits := c.Stats()
	assert.Equal(t, int64(2), calls)
	assert.Equal(t, int64(1), hits)
}

func TestLookupCache_UnmatchedIsCached(t *testing.T) {
	stub := geocode.NewStubProvider()
	c := newLookupCache(stub)
	addr := geocode.AddressInput{Street: "Nowhere 1", City: "Atlantis"}

	for range 3 {
		r, err := c.Geocode(context.Background(), addr)
		require.NoError(t, err)
		assert.False(t, r.Matched)
	}
	forwards, _ := stub.Calls()
	assert.Equal(t, 1, forwards)
}

func TestCacheKey_ExactTuple(t *testing.T) {
	a := cacheKey(geocode.AddressInput{Street: "Zeil 1", City: "Frankfurt", PostalCode: "60313"})
	b := cacheKey(geocode.AddressInput{Street: "Zeil 1", City: "frankfurt", PostalCode: "60313"})
	c := cacheKey(geocode.AddressInput{Street: "Zeil 1 Frankfurt", PostalCode: "60313"})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, cacheKey(geocode.AddressInput{Street: "Zeil 1", City: "Frankfurt", PostalCode: "60313", Country: "DE"}))
}
