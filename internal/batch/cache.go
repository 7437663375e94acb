package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/sells-group/dq-cli/pkg/geocode"
)

// lookupCache memoizes forward lookups for the lifetime of one batch, keyed
// by the exact (address, city, postal code) tuple. Concurrent lookups of the
// same key share a single provider call. Errors are not cached.
type lookupCache struct {
	fwd   geocode.Forwarder
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*geocode.Result

	calls   atomic.Int64
	lookups atomic.Int64
}

var _ geocode.Forwarder = (*lookupCache)(nil)

func newLookupCache(fwd geocode.Forwarder) *lookupCache {
	return &lookupCache{fwd: fwd, entries: make(map[string]*geocode.Result)}
}

func cacheKey(addr geocode.AddressInput) string {
	return addr.Street + "\x00" + addr.City + "\x00" + addr.PostalCode
}

func (c *lookupCache) get(key string) (*geocode.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// Geocode implements geocode.Forwarder.
func (c *lookupCache) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	c.lookups.Add(1)
	key := cacheKey(addr)
	if r, ok := c.get(key); ok {
		return r, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if r, ok := c.get(key); ok {
			return r, nil
		}
		c.calls.Add(1)
		r, err := c.fwd.Geocode(ctx, addr)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = r
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*geocode.Result), nil
}

// Stats returns provider calls made and lookups answered without a new call.
func (c *lookupCache) Stats() (calls, hits int64) {
	calls = c.calls.Load()
	return calls, c.lookups.Load() - calls
}
