// Package domain defines the core interfaces and types for BankMind.
package domain

import "errors"

// Predictor errors shared across services. The boundary layer maps
// ErrArtifactMissing and ErrNotReady to 503, ErrInvalidInput to 400,
// and everything else to a generic internal failure.
var (
	// ErrArtifactMissing indicates a model bundle file is absent at
	// its expected path.
	ErrArtifactMissing = errors.New("model artifact missing")

	// ErrArtifactCorrupt indicates a bundle file exists but cannot
	// be decoded into a usable predictor.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")

	// ErrNotReady indicates a soft-init service whose artifacts never
	// loaded. Requests fail without raising; init failure is
	// distinguishable from a prediction failure.
	ErrNotReady = errors.New("service not ready: artifacts not loaded")

	// ErrColumnMissing indicates a feature vector could not be built
	// in the column order the model requires. This is an internal
	// defect, not a recoverable request condition.
	ErrColumnMissing = errors.New("feature column missing")

	// ErrInvalidInput indicates a request value the service refuses
	// to compute on (e.g. Age == 0 in the churn ratios).
	ErrInvalidInput = errors.New("invalid input")
)

// Classifier is a fitted binary classifier. PredictProba returns the
// positive-class probability for one feature vector, in [0,1].
type Classifier interface {
	// FeatureNames returns the exact ordered column list the
	// classifier was trained with.
	FeatureNames() []string

	PredictProba(features []float64) (float64, error)
}

// Regressor is a fitted regression model.
type Regressor interface {
	// FeatureNames returns the exact ordered column list the
	// regressor was trained with.
	FeatureNames() []string

	Predict(features []float64) (float64, error)
}

// AnomalyScorer is a fitted unsupervised model producing a continuous
// anomaly score (higher = more normal, matching the isolation forest
// decision function convention).
type AnomalyScorer interface {
	DecisionFunction(features []float64) (float64, error)
}

// Transformer maps a raw feature vector to its standardized form.
// Column order must match the columns the transformer was fitted on.
type Transformer interface {
	Columns() []string
	Transform(features []float64) ([]float64, error)
}
