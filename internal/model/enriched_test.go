package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_CountsPerFlag(t *testing.T) {
	records := []EnrichedRecord{
		{Flags: QualityFlagSet{MissingCoordinates: true, IncompleteAddress: true}, UseAPICoordinates: true, Geocoded: true},
		{Flags: QualityFlagSet{InvalidCoordinates: true}, Geocoded: true, APILatitude: Float(52.5), APILongitude: Float(13.4)},
		{CoordinateDiffKm: Float(2.5), LargeCoordinateDiscrepancy: true},
		{CoordinateDiffKm: Float(0.2)},
	}

	s := Summarize(records)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Count(FlagMissingCoordinates))
	assert.Equal(t, 1, s.Count(FlagInvalidCoordinates))
	assert.Equal(t, 1, s.Count(FlagIncompleteAddress))
	assert.Equal(t, 0, s.Count(FlagLowConfidence))
	assert.Equal(t, 1, s.Count(FlagLargeCoordinateDiscrepancy))
	assert.Equal(t, 2, s.Geocoded)
	assert.Equal(t, 1, s.APIMatched)
	assert.Equal(t, 1, s.UseAPI)
	assert.Equal(t, 2, s.DiscrepancyChecked)
	assert.Len(t, s.Flags, len(RowFlags))
	assert.Equal(t, FlagMissingCoordinates, s.Flags[0].Flag)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	for _, fc := range s.Flags {
		assert.Zero(t, fc.Count)
	}
}

func TestQualityFlagSet_Any(t *testing.T) {
	assert.False(t, QualityFlagSet{}.Any())
	assert.True(t, QualityFlagSet{CityPostalMismatch: true}.Any())
	assert.False(t, QualityFlagSet{}.Get(Flag("unknown")))
}

func TestPreferredCoordinates(t *testing.T) {
	orig := EnrichedRecord{LocationRecord: LocationRecord{Latitude: Float(50), Longitude: Float(8)}}
	lat, lon, ok := orig.PreferredCoordinates()
	assert.True(t, ok)
	assert.InDelta(t, 50.0, lat, 1e-9)
	assert.InDelta(t, 8.0, lon, 1e-9)

	api := orig
	api.UseAPICoordinates = true
	api.APILatitude = Float(51)
	api.APILongitude = Float(9)
	lat, lon, ok = api.PreferredCoordinates()
	assert.True(t, ok)
	assert.InDelta(t, 51.0, lat, 1e-9)
	assert.InDelta(t, 9.0, lon, 1e-9)

	// Reconciler prefers the API but the lookup found nothing.
	none := EnrichedRecord{UseAPICoordinates: true}
	_, _, ok = none.PreferredCoordinates()
	assert.False(t, ok)
}

func TestLocationRecord_HalfCoordinatesAreMissing(t *testing.T) {
	assert.False(t, LocationRecord{Latitude: Float(52.5)}.HasCoordinates())
	assert.False(t, LocationRecord{Longitude: Float(13.4)}.HasCoordinates())
	assert.True(t, LocationRecord{Latitude: Float(52.5), Longitude: Float(13.4)}.HasCoordinates())
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString("   "))
	assert.Equal(t, "Berlin", *OptionalString(" Berlin "))
	for _, marker := range []string{"N/A", "NA", "NULL", "nan", " n/a ", "#N/A", "None"} {
		assert.Nil(t, OptionalString(marker), marker)
	}
	assert.Equal(t, "Nauen", *OptionalString("Nauen"))
	assert.Equal(t, "na", *OptionalString("na"), "markers match exactly")
	assert.Equal(t, "", StringOrEmpty(nil))
}

func TestLocationRecord_Value(t *testing.T) {
	rec := LocationRecord{
		ID:         "P-1",
		Address:    String("Zeil 1"),
		Latitude:   Float(50.1142),
		Attributes: map[string]string{"Sum Insured": " 250000 ", "Basement": "  "},
	}

	v, ok := rec.Value(ColumnID)
	assert.True(t, ok)
	assert.Equal(t, "P-1", v)

	v, ok = rec.Value(ColumnLatitude)
	assert.True(t, ok)
	assert.Equal(t, "50.1142", v)

	_, ok = rec.Value(ColumnLongitude)
	assert.False(t, ok)
	_, ok = rec.Value(ColumnCity)
	assert.False(t, ok)

	v, ok = rec.Value("Sum Insured")
	assert.True(t, ok)
	assert.Equal(t, "250000", v)

	_, ok = rec.Value("Basement")
	assert.False(t, ok)
	_, ok = rec.Value("Occupancy")
	assert.False(t, ok)
}

func TestAttribute_MissingMarkers(t *testing.T) {
	rec := LocationRecord{Attributes: map[string]string{
		"Sum Insured": "NULL",
		"Deductible":  " N/A ",
		"Basement":    "no",
		"Year Built":  "",
	}}

	for _, col := range []string{"Sum Insured", "Deductible", "Year Built", "Occupancy"} {
		_, ok := rec.Attribute(col)
		assert.False(t, ok, col)
	}
	v, ok := rec.Attribute("Basement")
	assert.True(t, ok)
	assert.Equal(t, "no", v)
}
