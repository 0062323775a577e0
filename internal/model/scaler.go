// Package model provides Go evaluators for the pre-fitted predictors
// carried in artifact bundles: tree ensembles, logistic regression,
// isolation forests, standard scalers and label encoders. Artifacts
// are produced offline; nothing in this package fits or mutates them.
package model

import "fmt"

// StandardScaler standardizes features as (x - mean) / scale, using
// the statistics fitted offline. Column order is the fitted order.
type StandardScaler struct {
	Cols  []string  `json:"columns"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Columns returns the fitted column order.
func (s *StandardScaler) Columns() []string {
	return s.Cols
}

// Transform standardizes one vector given in fitted column order.
func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(features))
	}
	out := make([]float64, len(features))
	for i, v := range features {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// Validate checks internal consistency after decoding.
func (s *StandardScaler) Validate() error {
	if len(s.Cols) == 0 {
		return fmt.Errorf("scaler has no columns")
	}
	if len(s.Mean) != len(s.Cols) || len(s.Scale) != len(s.Cols) {
		return fmt.Errorf("scaler shape mismatch: %d columns, %d means, %d scales",
			len(s.Cols), len(s.Mean), len(s.Scale))
	}
	return nil
}
