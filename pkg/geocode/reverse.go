package geocode

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ReverseResult holds the result of a reverse geocode operation. City and
// PostalCode may each be empty when the provider only knows one of them.
type ReverseResult struct {
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Source     string `json:"source"`
	Matched    bool   `json:"matched"`
}

// ReverseGeocode implements Reverser.
func (c *GeoapifyClient) ReverseGeocode(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	resp, err := c.get(ctx, "reverse", params)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: geoapify reverse")
	}

	if len(resp.Features) == 0 {
		zap.L().Debug("geoapify reverse: no result",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
		return &ReverseResult{Matched: false, Source: "geoapify"}, nil
	}

	props := resp.Features[0].Properties
	return &ReverseResult{
		City:       props.City,
		PostalCode: props.Postcode,
		Source:     "geoapify",
		Matched:    true,
	}, nil
}
