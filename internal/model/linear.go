package model

import "fmt"

// LogisticModel is a fitted logistic-regression binary classifier.
type LogisticModel struct {
	Features  []string  `json:"feature_names"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// FeatureNames returns the exact ordered column list the classifier
// was trained with.
func (m *LogisticModel) FeatureNames() []string {
	return m.Features
}

// PredictProba returns the positive-class probability.
func (m *LogisticModel) PredictProba(features []float64) (float64, error) {
	if len(features) != len(m.Coef) {
		return 0, fmt.Errorf("logistic model expects %d features, got %d", len(m.Coef), len(features))
	}
	z := m.Intercept
	for i, v := range features {
		z += m.Coef[i] * v
	}
	return sigmoid(z), nil
}

// Validate checks internal consistency after decoding.
func (m *LogisticModel) Validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("logistic model has no feature names")
	}
	if len(m.Coef) != len(m.Features) {
		return fmt.Errorf("logistic model shape mismatch: %d coefficients, %d features",
			len(m.Coef), len(m.Features))
	}
	return nil
}
