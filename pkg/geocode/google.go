package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dq-cli/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleClient is a forward-only fallback provider. Google reports a
// location_type instead of a numeric confidence; it is mapped onto [0,1] so
// the reconciler can compare it with the file's own confidence column.
type GoogleClient struct {
	apiKey string
	opts   httpOptions
}

// NewGoogle creates a Google Geocoding client.
func NewGoogle(apiKey string, opts ...Option) *GoogleClient {
	o := defaultHTTPOptions()
	o.baseURL = googleGeocodeURL
	o.limiter = nil
	for _, opt := range opts {
		opt(&o)
	}
	if o.limiter == nil {
		WithRateLimit(50)(&o)
	}
	return &GoogleClient{apiKey: apiKey, opts: o}
}

// Name implements Provider.
func (g *GoogleClient) Name() string { return "google" }

// Available implements Provider.
func (g *GoogleClient) Available() bool { return g.apiKey != "" }

// Geocode implements Forwarder.
func (g *GoogleClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	if !hasAddress(addr) {
		return &Result{Matched: false, Source: "google"}, nil
	}

	params := url.Values{
		"address": {formatQuery(addr)},
		"key":     {g.apiKey},
	}
	if g.opts.lang != "" {
		params.Set("language", g.opts.lang)
	}
	reqURL := g.opts.baseURL + "?" + params.Encode()

	retry := g.opts.retry
	retry.OnRetry = resilience.RetryLogger("google", "geocode")

	googleResp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*googleGeocodeResponse, error) {
		return resilience.Execute(ctx, g.opts.breaker, func(ctx context.Context) (*googleGeocodeResponse, error) {
			if err := g.opts.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limit")
			}
			return g.do(ctx, reqURL)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google")
	}

	if googleResp.Status != "OK" || len(googleResp.Results) == 0 {
		return &Result{Matched: false, Source: "google"}, nil
	}

	result := googleResp.Results[0]
	conf := googleLocationTypeToConfidence(result.Geometry.LocationType)
	return &Result{
		Latitude:   result.Geometry.Location.Lat,
		Longitude:  result.Geometry.Location.Lng,
		Confidence: &conf,
		Source:     "google",
		Quality:    googleLocationTypeToQuality(result.Geometry.LocationType),
		Matched:    true,
	}, nil
}

func (g *GoogleClient) do(ctx context.Context, reqURL string) (*googleGeocodeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}

	resp, err := g.opts.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Provider: "google", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	var out googleGeocodeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "parse response")
	}
	return &out, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}

// googleLocationTypeToConfidence maps location_type onto [0,1].
func googleLocationTypeToConfidence(locType string) float64 {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return 1.0
	case "RANGE_INTERPOLATED":
		return 0.9
	case "GEOMETRIC_CENTER":
		return 0.7
	default:
		return 0.5
	}
}
