package model

// EnrichedRecord is a LocationRecord plus everything the batch pass derived for it.
// The original coordinate fields are never overwritten.
type EnrichedRecord struct {
	LocationRecord

	Geocoded                   bool           `json:"geocoded"`
	APILatitude                *float64       `json:"api_latitude,omitempty"`
	APILongitude               *float64       `json:"api_longitude,omitempty"`
	APIConfidence              *float64       `json:"api_confidence,omitempty"`
	UseAPICoordinates          bool           `json:"use_api_coordinates"`
	CoordinateDiffKm           *float64       `json:"coordinate_diff_km,omitempty"`
	LargeCoordinateDiscrepancy bool           `json:"large_coordinate_discrepancy"`
	H3Cell                     string         `json:"h3_cell,omitempty"`
	Flags                      QualityFlagSet `json:"flags"`
}

// PreferredCoordinates returns the coordinates the reconciler recommends,
// falling back to the original pair when no API pair exists.
func (e EnrichedRecord) PreferredCoordinates() (lat, lon float64, ok bool) {
	if e.UseAPICoordinates && e.APILatitude != nil && e.APILongitude != nil {
		return *e.APILatitude, *e.APILongitude, true
	}
	if e.HasCoordinates() {
		return *e.Latitude, *e.Longitude, true
	}
	return 0, 0, false
}

// FlagCount is one line of the summary table.
type FlagCount struct {
	Flag  Flag `json:"check"`
	Count int  `json:"count"`
}

// Summary aggregates per-row outcomes of a batch. Counts are plain sums, so
// the order in which rows finished does not matter.
type Summary struct {
	Total              int         `json:"total"`
	Flags              []FlagCount `json:"flags"`
	Geocoded           int         `json:"geocoded"`
	APIMatched         int         `json:"api_matched"`
	UseAPI             int         `json:"use_api"`
	DiscrepancyChecked int         `json:"discrepancy_checked"`
	LargeDiscrepancies int         `json:"large_discrepancies"`
}

// Count returns the tally for a single flag.
func (s Summary) Count(flag Flag) int {
	if flag == FlagLargeCoordinateDiscrepancy {
		return s.LargeDiscrepancies
	}
	for _, fc := range s.Flags {
		if fc.Flag == flag {
			return fc.Count
		}
	}
	return 0
}

// Summarize folds enriched records into a Summary.
func Summarize(records []EnrichedRecord) Summary {
	counts := make(map[Flag]int, len(RowFlags))
	s := Summary{Total: len(records)}
	for _, r := range records {
		for _, flag := range RowFlags {
			if r.Flags.Get(flag) {
				counts[flag]++
			}
		}
		if r.Geocoded {
			s.Geocoded++
		}
		if r.APILatitude != nil && r.APILongitude != nil {
			s.APIMatched++
		}
		if r.UseAPICoordinates {
			s.UseAPI++
		}
		if r.CoordinateDiffKm != nil {
			s.DiscrepancyChecked++
		}
		if r.LargeCoordinateDiscrepancy {
			s.LargeDiscrepancies++
		}
	}
	s.Flags = make([]FlagCount, 0, len(RowFlags))
	for _, flag := range RowFlags {
		s.Flags = append(s.Flags, FlagCount{Flag: flag, Count: counts[flag]})
	}
	return s
}
