package model

// Flag names a data-quality check. The string value is the output column header.
type Flag string

const (
	FlagMissingCoordinates         Flag = "DQ: Missing Coordinates"
	FlagInvalidCoordinates         Flag = "DQ: Invalid Coordinates"
	FlagLowConfidence              Flag = "DQ: Low Confidence"
	FlagReverseGeocodeMismatch     Flag = "DQ: Reverse Geocode Mismatch"
	FlagCityPostalMismatch         Flag = "DQ: City/Postal Mismatch"
	FlagIncompleteAddress          Flag = "DQ: Incomplete Address"
	FlagLargeCoordinateDiscrepancy Flag = "DQ: Large Coordinate Discrepancy"
)

// RowFlags lists the six row-validation flags in report order.
var RowFlags = []Flag{
	FlagMissingCoordinates,
	FlagInvalidCoordinates,
	FlagLowConfidence,
	FlagReverseGeocodeMismatch,
	FlagCityPostalMismatch,
	FlagIncompleteAddress,
}

// QualityFlagSet is the outcome of validating one record. Every flag is
// always populated; unset means false.
type QualityFlagSet struct {
	MissingCoordinates     bool `json:"missing_coordinates"`
	InvalidCoordinates     bool `json:"invalid_coordinates"`
	LowConfidence          bool `json:"low_confidence"`
	ReverseGeocodeMismatch bool `json:"reverse_geocode_mismatch"`
	CityPostalMismatch     bool `json:"city_postal_mismatch"`
	IncompleteAddress      bool `json:"incomplete_address"`
}

// Get returns the value of a row flag. Unknown flags are false.
func (f QualityFlagSet) Get(flag Flag) bool {
	switch flag {
	case FlagMissingCoordinates:
		return f.MissingCoordinates
	case FlagInvalidCoordinates:
		return f.InvalidCoordinates
	case FlagLowConfidence:
		return f.LowConfidence
	case FlagReverseGeocodeMismatch:
		return f.ReverseGeocodeMismatch
	case FlagCityPostalMismatch:
		return f.CityPostalMismatch
	case FlagIncompleteAddress:
		return f.IncompleteAddress
	default:
		return false
	}
}

// Any reports whether at least one flag is raised.
func (f QualityFlagSet) Any() bool {
	for _, flag := range RowFlags {
		if f.Get(flag) {
			return true
		}
	}
	return false
}
