// Package batch runs the rule engine across a dataset: forward geocoding
// through a per-batch cache, coordinate reconciliation, reverse lookups for
// in-box coordinates and row validation, assembled into enriched records in
// input order.
package batch

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dq-cli/internal/model"
	"github.com/sells-group/dq-cli/internal/rules"
	"github.com/sells-group/dq-cli/pkg/geocode"
)

// Options controls a single batch run.
type Options struct {
	// Geocode enables forward lookups.
	Geocode bool
	// Reverse enables reverse lookups for coordinates inside the box.
	Reverse bool
	// Limit processes only the first Limit records. 0 means all.
	Limit int
	// Concurrency is the number of records processed at once. Provider pacing
	// still applies across all workers.
	Concurrency int
	// H3Resolution of the exposure cell. 0 disables it.
	H3Resolution int
}

// DefaultOptions processes one row at a time with both lookups enabled.
func DefaultOptions() Options {
	return Options{
		Geocode:      true,
		Reverse:      true,
		Concurrency:  1,
		H3Resolution: rules.DefaultH3Resolution,
	}
}

// ProgressFunc is called after each record completes. It may be called from
// several goroutines at once.
type ProgressFunc func(done, total int)

// Processor is the batch orchestrator.
type Processor struct {
	forward  geocode.Forwarder
	reverse  geocode.Reverser
	rules    rules.Rules
	opts     Options
	progress ProgressFunc
}

// Option configures a Processor.
type Option func(*Processor)

// WithForward sets the forward geocoder.
func WithForward(f geocode.Forwarder) Option {
	return func(p *Processor) { p.forward = f }
}

// WithReverse sets the reverse geocoder.
func WithReverse(r geocode.Reverser) Option {
	return func(p *Processor) { p.reverse = r }
}

// WithClient sets both directions from one client.
func WithClient(c geocode.Client) Option {
	return func(p *Processor) {
		p.forward = c
		p.reverse = c
	}
}

// WithRules overrides the default German rules.
func WithRules(r rules.Rules) Option {
	return func(p *Processor) { p.rules = r }
}

// WithOptions replaces the run options.
func WithOptions(o Options) Option {
	return func(p *Processor) { p.opts = o }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{
		rules: rules.Default(),
		opts:  DefaultOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.opts.Concurrency <= 0 {
		p.opts.Concurrency = 1
	}
	return p
}

// Process enriches records and summarizes their flags. Per-record provider
// failures degrade to "no match" and never fail the batch. If ctx is
// cancelled, dispatch stops and the records that completed are returned with
// Partial set, together with the context error.
func (p *Processor) Process(ctx context.Context, records []model.LocationRecord) (*Result, error) {
	n := len(records)
	if p.opts.Limit > 0 && p.opts.Limit < n {
		n = p.opts.Limit
	}
	selected := records[:n]

	log := zap.L().With(zap.String("component", "batch"))
	log.Info("batch: starting",
		zap.Int("records", len(records)),
		zap.Int("selected", n),
		zap.Bool("geocode", p.opts.Geocode && p.forward != nil),
		zap.Bool("reverse", p.opts.Reverse && p.reverse != nil),
		zap.Int("concurrency", p.opts.Concurrency),
	)

	var cache *lookupCache
	if p.opts.Geocode && p.forward != nil {
		cache = newLookupCache(p.forward)
	}

	slots := make([]model.EnrichedRecord, n)
	done := make([]bool, n)
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

dispatch:
	for i := range selected {
		select {
		case <-gctx.Done():
			break dispatch
		default:
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rec, err := p.enrich(gctx, cache, selected[i])
			if err != nil {
				// Only cancellation gets here; the row is discarded.
				return nil
			}
			slots[i] = rec
			done[i] = true
			c := int(completed.Add(1))
			if p.progress != nil {
				p.progress(c, n)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Total: n}
	result.Records = make([]model.EnrichedRecord, 0, completed.Load())
	for i := range slots {
		if done[i] {
			result.Records = append(result.Records, slots[i])
		}
	}
	result.Processed = len(result.Records)
	result.Partial = result.Processed < n
	result.Summary = model.Summarize(result.Records)
	if cache != nil {
		result.ProviderCalls, result.CacheHits = cache.Stats()
	}

	if err := ctx.Err(); err != nil {
		log.Warn("batch: cancelled",
			zap.Int("processed", result.Processed),
			zap.Int("selected", n),
			zap.Error(err),
		)
		return result, err
	}

	log.Info("batch: complete",
		zap.Int("processed", result.Processed),
		zap.Int64("provider_calls", result.ProviderCalls),
		zap.Int64("cache_hits", result.CacheHits),
	)
	return result, nil
}

// enrich runs the per-record steps. It returns an error only when ctx is done.
func (p *Processor) enrich(ctx context.Context, cache *lookupCache, rec model.LocationRecord) (model.EnrichedRecord, error) {
	out := model.EnrichedRecord{LocationRecord: rec}
	log := zap.L().With(zap.Int("row", rec.Index), zap.String("id", rec.ID))

	original := rules.Coordinates{
		Latitude:   rec.Latitude,
		Longitude:  rec.Longitude,
		Confidence: rec.GeocodingConfidence,
	}

	// (a) forward lookup
	var api rules.Coordinates
	if cache != nil && hasLookupInput(rec) {
		res, err := cache.Geocode(ctx, p.addressInput(rec))
		switch {
		case err != nil && ctx.Err() != nil:
			return out, ctx.Err()
		case err != nil:
			log.Warn("batch: forward geocode failed, treating as no match", zap.Error(err))
		default:
			out.Geocoded = true
			if res != nil && res.Matched {
				api = rules.Coordinates{
					Latitude:   model.Float(res.Latitude),
					Longitude:  model.Float(res.Longitude),
					Confidence: res.Confidence,
				}
				out.APILatitude = api.Latitude
				out.APILongitude = api.Longitude
				out.APIConfidence = api.Confidence
			}
		}
	}

	// (b) reconcile
	recon := rules.Reconcile(original, api, p.rules)
	out.UseAPICoordinates = recon.UseAPI
	out.CoordinateDiffKm = recon.DiffKm
	out.LargeCoordinateDiscrepancy = recon.LargeDiscrepancy

	// (c) reverse lookup for in-box coordinates, then validate
	var rev *geocode.ReverseResult
	if p.opts.Reverse && p.reverse != nil && rec.HasCoordinates() && p.rules.InRange(*rec.Latitude, *rec.Longitude) {
		r, err := p.reverse.ReverseGeocode(ctx, *rec.Latitude, *rec.Longitude)
		switch {
		case err != nil && ctx.Err() != nil:
			return out, ctx.Err()
		case err != nil:
			log.Warn("batch: reverse geocode failed, treating as no match", zap.Error(err))
		default:
			rev = r
		}
	}
	out.Flags = rules.Validate(rec, rev, p.rules)

	if p.opts.H3Resolution > 0 {
		if lat, lon, ok := out.PreferredCoordinates(); ok {
			cell, err := rules.Cell(rules.Point{Lat: lat, Lon: lon}, p.opts.H3Resolution)
			if err != nil {
				log.Debug("batch: h3 cell", zap.Error(err))
			} else {
				out.H3Cell = cell
			}
		}
	}
	return out, nil
}

func (p *Processor) addressInput(rec model.LocationRecord) geocode.AddressInput {
	return geocode.AddressInput{
		ID:         rec.ID,
		Street:     model.StringOrEmpty(rec.Address),
		City:       model.StringOrEmpty(rec.City),
		PostalCode: model.StringOrEmpty(rec.PostalCode),
		Country:    p.rules.Country,
	}
}

// hasLookupInput reports whether there is an address to send. Rows with no
// address, city or postal code are not worth a provider call.
func hasLookupInput(rec model.LocationRecord) bool {
	return rec.Address != nil || rec.City != nil || rec.PostalCode != nil
}
