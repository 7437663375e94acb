package rules

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profiles maps a region name to its rules.
type Profiles map[string]Rules

// LoadProfiles reads region profiles from a YAML file of the form
//
//	regions:
//	  DE:
//	    country: Germany
//	    bounding_box: {min_lat: 47.27, max_lat: 55.06, min_lon: 5.87, max_lon: 15.04}
//	    confidence_threshold: 0.8
//	    discrepancy_threshold_km: 1.0
//
// Thresholds left out of a region fall back to the German defaults.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read profiles %s", path)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes profile YAML.
func ParseProfiles(data []byte) (Profiles, error) {
	var wrapper struct {
		Regions map[string]struct {
			Country                string       `yaml:"country"`
			Box                    *BoundingBox `yaml:"bounding_box"`
			ConfidenceThreshold    *float64     `yaml:"confidence_threshold"`
			DiscrepancyThresholdKm *float64     `yaml:"discrepancy_threshold_km"`
		} `yaml:"regions"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "rules: parse profiles")
	}

	out := make(Profiles, len(wrapper.Regions))
	for name, p := range wrapper.Regions {
		if p.Box == nil {
			return nil, eris.Errorf("rules: region %q has no bounding_box", name)
		}
		r := Default()
		r.Box = *p.Box
		r.Country = p.Country
		if p.ConfidenceThreshold != nil {
			r.ConfidenceThreshold = *p.ConfidenceThreshold
		}
		if p.DiscrepancyThresholdKm != nil {
			r.DiscrepancyThresholdKm = *p.DiscrepancyThresholdKm
		}
		if err := r.Validate(); err != nil {
			return nil, eris.Wrapf(err, "rules: region %q", name)
		}
		out[name] = r
	}
	return out, nil
}

// Lookup returns the rules for a region.
func (p Profiles) Lookup(region string) (Rules, error) {
	r, ok := p[region]
	if !ok {
		return Rules{}, eris.Errorf("rules: unknown region %q (have %v)", region, p.Names())
	}
	return r, nil
}

// Names lists the configured regions in sorted order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
