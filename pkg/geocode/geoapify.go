package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/resilience"
)

const geoapifyBaseURL = "https://api.geoapify.com/v1/geocode"

// geoapifyResponse is the GeoJSON FeatureCollection returned by both the
// search and reverse endpoints.
type geoapifyResponse struct {
	Features []geoapifyFeature `json:"features"`
}

type geoapifyFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		City     string `json:"city"`
		Postcode string `json:"postcode"`
		Rank     struct {
			Confidence *float64 `json:"confidence"`
			MatchType  string   `json:"match_type"`
		} `json:"rank"`
	} `json:"properties"`
}

// GeoapifyClient implements Client against the Geoapify geocoding API.
type GeoapifyClient struct {
	apiKey string
	opts   httpOptions
}

// NewGeoapify creates a Geoapify client. Responses are requested in German by
// default, matching the city spellings found in German policy files.
func NewGeoapify(apiKey string, opts ...Option) *GeoapifyClient {
	o := defaultHTTPOptions()
	o.baseURL = geoapifyBaseURL
	o.lang = "de"
	for _, opt := range opts {
		opt(&o)
	}
	return &GeoapifyClient{apiKey: apiKey, opts: o}
}

// Name implements Provider.
func (c *GeoapifyClient) Name() string { return "geoapify" }

// Available implements Provider.
func (c *GeoapifyClient) Available() bool { return c.apiKey != "" }

// Geocode implements Forwarder.
func (c *GeoapifyClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if !hasAddress(addr) {
		return &Result{Matched: false, Source: "geoapify"}, nil
	}

	params := url.Values{
		"text":  {formatQuery(addr)},
		"limit": {"1"},
	}
	resp, err := c.get(ctx, "search", params)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: geoapify search")
	}

	if len(resp.Features) == 0 || len(resp.Features[0].Geometry.Coordinates) < 2 {
		zap.L().Debug("geoapify: no match", zap.String("id", addr.ID), zap.String("query", params.Get("text")))
		return &Result{Matched: false, Source: "geoapify"}, nil
	}

	f := resp.Features[0]
	return &Result{
		Latitude:   f.Geometry.Coordinates[1],
		Longitude:  f.Geometry.Coordinates[0],
		Confidence: f.Properties.Rank.Confidence,
		Source:     "geoapify",
		Quality:    f.Properties.Rank.MatchType,
		Matched:    true,
	}, nil
}

// get performs one paced, retried and breaker-guarded GET against an endpoint.
func (c *GeoapifyClient) get(ctx context.Context, endpoint string, params url.Values) (*geoapifyResponse, error) {
	if c.apiKey == "" {
		return nil, eris.New("geocode: geoapify api key not configured")
	}
	params.Set("apiKey", c.apiKey)
	if c.opts.lang != "" {
		params.Set("lang", c.opts.lang)
	}
	reqURL := c.opts.baseURL + "/" + endpoint + "?" + params.Encode()

	retry := c.opts.retry
	retry.OnRetry = resilience.RetryLogger("geoapify", endpoint)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*geoapifyResponse, error) {
		return resilience.Execute(ctx, c.opts.breaker, func(ctx context.Context) (*geoapifyResponse, error) {
			if err := c.opts.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limit")
			}
			return c.do(ctx, reqURL)
		})
	})
}

func (c *GeoapifyClient) do(ctx context.Context, reqURL string) (*geoapifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &resilience.StatusError{Provider: "geoapify", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	var out geoapifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "parse response")
	}
	return &out, nil
}
