// Package rules is the data-quality rule engine: the bounding-box check, the
// great-circle distance, the per-row validator and the coordinate reconciler.
// Everything here is pure and CPU-only; thresholds arrive as a Rules value.
package rules

import (
	"github.com/rotisserie/eris"
)

// Defaults for the German portfolio the engine was built for.
const (
	DefaultMinLat                 = 47.27
	DefaultMaxLat                 = 55.06
	DefaultMinLon                 = 5.87
	DefaultMaxLon                 = 15.04
	DefaultConfidenceThreshold    = 0.8
	DefaultDiscrepancyThresholdKm = 1.0
	DefaultCountry                = "Germany"
	DefaultH3Resolution           = 9
)

// Rules carries every tunable the validator and reconciler consult.
type Rules struct {
	Box                    BoundingBox `yaml:"bounding_box" mapstructure:"bounding_box" json:"bounding_box"`
	ConfidenceThreshold    float64     `yaml:"confidence_threshold" mapstructure:"confidence_threshold" json:"confidence_threshold"`
	DiscrepancyThresholdKm float64     `yaml:"discrepancy_threshold_km" mapstructure:"discrepancy_threshold_km" json:"discrepancy_threshold_km"`
	// Country is appended to forward geocoding queries.
	Country string `yaml:"country" mapstructure:"country" json:"country"`
}

// Default returns the German reference rules.
func Default() Rules {
	return Rules{
		Box: BoundingBox{
			MinLat: DefaultMinLat,
			MaxLat: DefaultMaxLat,
			MinLon: DefaultMinLon,
			MaxLon: DefaultMaxLon,
		},
		ConfidenceThreshold:    DefaultConfidenceThreshold,
		DiscrepancyThresholdKm: DefaultDiscrepancyThresholdKm,
		Country:                DefaultCountry,
	}
}

// Validate checks that the rules are usable.
func (r Rules) Validate() error {
	if err := r.Box.Validate(); err != nil {
		return err
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return eris.Errorf("rules: confidence threshold %v outside [0,1]", r.ConfidenceThreshold)
	}
	if r.DiscrepancyThresholdKm < 0 {
		return eris.Errorf("rules: discrepancy threshold %v km is negative", r.DiscrepancyThresholdKm)
	}
	return nil
}
