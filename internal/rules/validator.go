package rules

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/dq-cli/internal/model"
	"github.com/sells-group/dq-cli/pkg/geocode"
)

// InRange reports whether (lat, lon) passes the reference bounding box.
func (r Rules) InRange(lat, lon float64) bool {
	return r.Box.Contains(lat, lon)
}

// Validate derives the quality flags of one record. rev is the reverse lookup
// for the record's own coordinates and may be nil. The city and postal code
// cross-checks only run when the coordinates are present and inside the box.
func Validate(rec model.LocationRecord, rev *geocode.ReverseResult, r Rules) model.QualityFlagSet {
	var flags model.QualityFlagSet

	if !rec.HasCoordinates() {
		flags.MissingCoordinates = true
	} else if !r.InRange(*rec.Latitude, *rec.Longitude) {
		flags.InvalidCoordinates = true
	} else if rev != nil && rev.Matched {
		flags.ReverseGeocodeMismatch = cityMismatch(rec.City, rev.City)
		flags.CityPostalMismatch = postalMismatch(rec.PostalCode, rev.PostalCode)
	}

	if rec.GeocodingConfidence != nil && *rec.GeocodingConfidence < r.ConfidenceThreshold {
		flags.LowConfidence = true
	}

	flags.IncompleteAddress = incompleteAddress(rec.Address)
	return flags
}

// cityMismatch compares case-insensitively. No declared city or no returned
// city means there is nothing to compare.
func cityMismatch(declared *string, returned string) bool {
	returned = strings.TrimSpace(returned)
	if declared == nil || returned == "" {
		return false
	}
	// Casers keep state and are not safe for concurrent use.
	lower := cases.Lower(language.Und)
	return lower.String(*declared) != lower.String(returned)
}

// postalMismatch compares the raw strings exactly.
func postalMismatch(declared *string, returned string) bool {
	if declared == nil || returned == "" {
		return false
	}
	return *declared != returned
}

func incompleteAddress(address *string) bool {
	if address == nil {
		return true
	}
	return len(strings.Fields(*address)) < 2
}
