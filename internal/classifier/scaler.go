package classifier

import "fmt"

// Scaler standardises features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `yaml:"mean" json:"mean"`
	Scale []float64 `yaml:"scale" json:"scale"`
}

func (s *Scaler) validate() error {
	if len(s.Mean) != FeatureCount || len(s.Scale) != FeatureCount {
		return fmt.Errorf("scaler needs %d means and scales, got %d and %d", FeatureCount, len(s.Mean), len(s.Scale))
	}
	return nil
}

// Transform returns a scaled copy of x. A zero scale leaves the centred value
// unscaled.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(x) != len(s.Scale) {
		return nil, ErrFeatureCount
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}
