package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dq-cli/internal/model"
	"github.com/sells-group/dq-cli/internal/rules"
	"github.com/sells-group/dq-cli/pkg/geocode"
)

func loc(i int, id, address, city, postal string, lat, lon, conf *float64) model.LocationRecord {
	return model.LocationRecord{
		Index:               i,
		ID:                  id,
		Address:             model.OptionalString(address),
		City:                model.OptionalString(city),
		PostalCode:          model.OptionalString(postal),
		Latitude:            lat,
		Longitude:           lon,
		GeocodingConfidence: conf,
	}
}

func threeRecords() []model.LocationRecord {
	return []model.LocationRecord{
		loc(0, "P-1", "Unter den Linden 1", "Berlin", "10117", model.Float(52.5170), model.Float(13.3889), model.Float(0.95)),
		loc(1, "P-2", "Marienplatz 1", "München", "80331", nil, nil, nil),
		loc(2, "P-3", "Rue de Rivoli 1", "Paris", "75001", model.Float(48.8566), model.Float(2.3522), model.Float(0.9)),
	}
}

func threeRecordStub() *geocode.StubProvider {
	return geocode.NewStubProvider().
		AddForward("Unter den Linden 1", "Berlin", "10117", 52.5171, 13.3890, model.Float(0.9)).
		AddForward("Marienplatz 1", "München", "80331", 48.1374, 11.5755, model.Float(0.97)).
		AddReverse(52.5170, 13.3889, "Berlin", "10117")
}

func TestProcess_EndToEnd(t *testing.T) {
	stub := threeRecordStub()
	p := New(WithClient(stub))

	result, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Total)
	assert.False(t, result.Partial)
	require.Len(t, result.Records, 3)
	for i, want := range []string{"P-1", "P-2", "P-3"} {
		assert.Equal(t, i, result.Records[i].Index)
		assert.Equal(t, want, result.Records[i].ID)
	}

	assert.Equal(t, 1, result.Summary.Count(model.FlagMissingCoordinates))
	assert.Equal(t, 1, result.Summary.Count(model.FlagInvalidCoordinates))
	assert.Equal(t, 0, result.Summary.Count(model.FlagReverseGeocodeMismatch))
	assert.Equal(t, 0, result.Summary.Count(model.FlagCityPostalMismatch))
	assert.Equal(t, 3, result.Summary.Total)

	berlin := result.Records[0]
	assert.False(t, berlin.Flags.Any())
	assert.True(t, berlin.Geocoded)
	assert.False(t, berlin.UseAPICoordinates, "original 0.95 beats api 0.9")
	require.NotNil(t, berlin.CoordinateDiffKm)
	assert.Less(t, *berlin.CoordinateDiffKm, 1.0)
	assert.NotEmpty(t, berlin.H3Cell)

	munich := result.Records[1]
	assert.True(t, munich.Flags.MissingCoordinates)
	assert.True(t, munich.UseAPICoordinates)
	assert.Nil(t, munich.CoordinateDiffKm)
	require.NotNil(t, munich.APILatitude)
	assert.InDelta(t, 48.1374, *munich.APILatitude, 1e-9)
	assert.Nil(t, munich.Latitude, "original coordinates are never overwritten")
	assert.NotEmpty(t, munich.H3Cell)

	paris := result.Records[2]
	assert.True(t, paris.Flags.InvalidCoordinates)
	assert.False(t, paris.Flags.ReverseGeocodeMismatch)
	assert.True(t, paris.Geocoded)
	assert.Nil(t, paris.APILatitude)

	_, reverses := stub.Calls()
	assert.Equal(t, 1, reverses, "reverse lookups only for in-box coordinates")
}

func TestProcess_Limit(t *testing.T) {
	stub := threeRecordStub()
	p := New(WithClient(stub), WithOptions(Options{Geocode: true, Reverse: true, Limit: 2}))

	result, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Processed)
	assert.False(t, result.Partial)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "P-2", result.Records[1].ID)

	forwards, _ := stub.Calls()
	assert.Equal(t, 2, forwards)
}

func TestProcess_LimitLargerThanInput(t *testing.T) {
	p := New(WithClient(threeRecordStub()), WithOptions(Options{Geocode: true, Limit: 50}))
	result, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
}

func TestProcess_CacheDedupesIdenticalLookups(t *testing.T) {
	var records []model.LocationRecord
	for i := range 20 {
		records = append(records, loc(i, fmt.Sprintf("P-%d", i), "Zeil 1", "Frankfurt", "60313", nil, nil, nil))
	}
	records = append(records, loc(20, "P-20", "Zeil 1", "Frankfurt", "", nil, nil, nil))

	for _, concurrency := range []int{1, 8} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			stub := geocode.NewStubProvider().AddForward("Zeil 1", "Frankfurt", "60313", 50.1142, 8.6822, model.Float(0.9))
			p := New(WithForward(stub), WithOptions(Options{Geocode: true, Concurrency: concurrency}))
			result, err := p.Process(context.Background(), records)
			require.NoError(t, err)

			forwards, _ := stub.Calls()
			assert.Equal(t, 2, forwards, "one call per distinct (address, city, postal)")
			assert.Equal(t, int64(2), result.ProviderCalls)
			assert.Equal(t, int64(19), result.CacheHits)
			assert.Nil(t, result.Records[20].APILatitude, "different postal code is a different key")
		})
	}
}

type failingForwarder struct{}

func (failingForwarder) Geocode(context.Context, geocode.AddressInput) (*geocode.Result, error) {
	return nil, errors.New("geoapify: unexpected status 503")
}

func (failingForwarder) ReverseGeocode(context.Context, float64, float64) (*geocode.ReverseResult, error) {
	return nil, errors.New("geoapify: unexpected status 503")
}

func TestProcess_ProviderErrorsDegradeToNoMatch(t *testing.T) {
	p := New(WithClient(failingForwarder{}))

	result, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	for _, rec := range result.Records {
		assert.False(t, rec.Geocoded)
		assert.Nil(t, rec.APILatitude)
		assert.Nil(t, rec.APIConfidence)
		assert.Nil(t, rec.CoordinateDiffKm)
	}
	assert.Equal(t, 1, result.Summary.Count(model.FlagMissingCoordinates))
	assert.True(t, result.Records[1].UseAPICoordinates, "missing original coordinates always defer to the api")
	assert.Empty(t, result.Records[1].H3Cell)
}

func TestProcess_GeocodingDisabled(t *testing.T) {
	stub := threeRecordStub()
	p := New(WithClient(stub), WithOptions(Options{Geocode: false, Reverse: false}))

	result, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)

	forwards, reverses := stub.Calls()
	assert.Zero(t, forwards)
	assert.Zero(t, reverses)
	assert.True(t, result.Records[1].UseAPICoordinates)
	assert.False(t, result.Records[0].UseAPICoordinates)
	assert.Equal(t, int64(0), result.ProviderCalls)
}

func TestProcess_SkipsLookupWithoutAddress(t *testing.T) {
	stub := geocode.NewStubProvider()
	p := New(WithForward(stub))

	result, err := p.Process(context.Background(), []model.LocationRecord{loc(0, "P-1", "", "", "", nil, nil, nil)})
	require.NoError(t, err)
	forwards, _ := stub.Calls()
	assert.Zero(t, forwards)
	assert.True(t, result.Records[0].Flags.IncompleteAddress)
	assert.True(t, result.Records[0].Flags.MissingCoordinates)
}

func TestProcess_ReverseMismatch(t *testing.T) {
	stub := geocode.NewStubProvider().AddReverse(52.39, 13.06, "Potsdam", "14467")
	p := New(WithReverse(stub), WithOptions(Options{Reverse: true}))

	result, err := p.Process(context.Background(), []model.LocationRecord{
		loc(0, "P-1", "Am Neuen Markt 1", "Berlin", "10117", model.Float(52.39), model.Float(13.06), nil),
	})
	require.NoError(t, err)
	assert.True(t, result.Records[0].Flags.ReverseGeocodeMismatch)
	assert.True(t, result.Records[0].Flags.CityPostalMismatch)
}

func TestProcess_Discrepancies(t *testing.T) {
	stub := geocode.NewStubProvider().
		AddForward("Zeil 1", "Frankfurt", "60313", 50.1142, 8.6822, model.Float(0.99)).
		AddForward("Hauptstrasse 5", "Hamburg", "20095", 53.5511, 9.9937, model.Float(0.99))

	records := []model.LocationRecord{
		loc(0, "near", "Zeil 1", "Frankfurt", "60313", model.Float(50.1143), model.Float(8.6823), model.Float(0.5)),
		loc(1, "far", "Hauptstrasse 5", "Hamburg", "20095", model.Float(52.52), model.Float(13.405), model.Float(0.5)),
	}
	p := New(WithForward(stub), WithOptions(Options{Geocode: true}))
	result, err := p.Process(context.Background(), records)
	require.NoError(t, err)

	d := result.Discrepancies()
	require.Len(t, d, 1)
	assert.Equal(t, "far", d[0].ID)
	assert.True(t, d[0].UseAPICoordinates)
	assert.Equal(t, 2, result.Summary.DiscrepancyChecked)
	assert.Equal(t, 1, result.Summary.LargeDiscrepancies)
	assert.Equal(t, 1, result.Summary.Count(model.FlagLargeCoordinateDiscrepancy))
}

func TestProcess_CustomRulesAndNoH3(t *testing.T) {
	r := rules.Default()
	r.Box = rules.BoundingBox{MinLat: 48, MaxLat: 49, MinLon: 2, MaxLon: 3}
	p := New(WithRules(r), WithOptions(Options{}))

	result, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)
	assert.True(t, result.Records[0].Flags.InvalidCoordinates)
	assert.False(t, result.Records[2].Flags.InvalidCoordinates)
	assert.Empty(t, result.Records[0].H3Cell)
}

func TestProcess_ConcurrencyMatchesSequential(t *testing.T) {
	var records []model.LocationRecord
	stub := geocode.NewStubProvider()
	for i := range 60 {
		lat := 47.0 + float64(i)*0.15
		addr := fmt.Sprintf("Strasse %d", i%7)
		records = append(records, loc(i, fmt.Sprintf("P-%d", i), addr, "Stadt", "", model.Float(lat), model.Float(10), model.Float(float64(i%10)/10)))
		stub.AddForward(addr, "Stadt", "", lat+0.01, 10, model.Float(0.85))
	}

	seq, err := New(WithForward(stub), WithOptions(Options{Geocode: true, Concurrency: 1, H3Resolution: 7})).Process(context.Background(), records)
	require.NoError(t, err)
	par, err := New(WithForward(stub), WithOptions(Options{Geocode: true, Concurrency: 8, H3Resolution: 7})).Process(context.Background(), records)
	require.NoError(t, err)

	if diff := cmp.Diff(seq.Summary, par.Summary); diff != "" {
		t.Errorf("summary mismatch (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seq.Records, par.Records); diff != "" {
		t.Errorf("records mismatch (-seq +par):\n%s", diff)
	}
}

func TestProcess_Progress(t *testing.T) {
	var mu sync.Mutex
	var calls []int
	p := New(WithClient(threeRecordStub()), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	}))

	_, err := p.Process(context.Background(), threeRecords())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

// blockingForwarder answers immediately except for one street, where it
// cancels the batch and waits for the context.
type blockingForwarder struct {
	street string
	cancel context.CancelFunc
}

func (b *blockingForwarder) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	if addr.Street == b.street {
		b.cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &geocode.Result{Latitude: 50, Longitude: 10, Matched: true, Source: "test"}, nil
}

func TestProcess_CancellationReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := []model.LocationRecord{
		loc(0, "P-1", "Zeil 1", "Frankfurt", "", nil, nil, nil),
		loc(1, "P-2", "Zeil 2", "Frankfurt", "", nil, nil, nil),
		loc(2, "P-3", "Zeil 3", "Frankfurt", "", nil, nil, nil),
		loc(3, "P-4", "Zeil 4", "Frankfurt", "", nil, nil, nil),
	}
	p := New(WithForward(&blockingForwarder{street: "Zeil 2", cancel: cancel}), WithOptions(Options{Geocode: true, Concurrency: 1}))

	result, err := p.Process(ctx, records)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Partial)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 4, result.Total)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "P-1", result.Records[0].ID)
	require.NotNil(t, result.Records[0].APILatitude)
	assert.Equal(t, 1, result.Summary.Total)
}

func TestProcess_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(WithClient(threeRecordStub())).Process(ctx, threeRecords())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Processed)
	assert.True(t, result.Partial)
	assert.Empty(t, result.Records)
}

func TestProcess_Empty(t *testing.T) {
	result, err := New().Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.False(t, result.Partial)
	assert.Empty(t, result.Discrepancies())
}
