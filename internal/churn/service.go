// Package churn scores bank customers for attrition risk using a
// pre-fitted binary classifier, a full-row scaler and the trained
// feature-name list exported beside the model.
package churn

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/opensource-finance/bankmind/internal/artifact"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/feature"
)

// riskThreshold separates the coarse risk tiers. It sits below the
// 0.5 prediction cut so borderline customers surface as high risk
// before the model flips to a churn verdict.
const riskThreshold = 0.45

// Service reconstructs the training-time feature frame from raw
// customer attributes and runs the churn classifier. A Service built
// from a partial bundle stays constructible and reports not-ready on
// every request.
type Service struct {
	bundle *artifact.ChurnBundle
	logger *slog.Logger
}

// NewService builds the churn service. Unlike fraud, a missing or
// partial bundle is tolerated here so the rest of the process can
// keep serving.
func NewService(bundle *artifact.ChurnBundle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bundle: bundle, logger: logger.With(slog.String("service", "churn"))}
}

// Ready reports whether all churn artifacts loaded.
func (s *Service) Ready() bool {
	return s.bundle.Ready()
}

// Predict scores one customer. The feature frame is rebuilt exactly
// as at training time: engineered ratios, numeric gender, drop-first
// geography one-hot, reindex to the trained column order with zero
// fill, then a full-row scale.
func (s *Service) Predict(ctx context.Context, req *domain.ChurnRequest) (*domain.ChurnDecision, error) {
	if !s.bundle.Ready() {
		return nil, fmt.Errorf("%w: churn artifacts not loaded", domain.ErrNotReady)
	}
	if req.Age <= 0 {
		return nil, fmt.Errorf("%w: Age must be positive, got %d", domain.ErrInvalidInput, req.Age)
	}
	if req.EstimatedSalary == 0 {
		return nil, fmt.Errorf("%w: EstimatedSalary must be non-zero", domain.ErrInvalidInput)
	}

	gender, err := encodeGender(req.Gender)
	if err != nil {
		return nil, err
	}

	row := feature.Row{
		"CreditScore":     float64(req.CreditScore),
		"Gender":          gender,
		"Age":             float64(req.Age),
		"Tenure":          float64(req.Tenure),
		"Balance":         req.Balance,
		"NumOfProducts":   float64(req.NumOfProducts),
		"HasCrCard":       float64(req.HasCrCard),
		"IsActiveMember":  float64(req.IsActiveMember),
		"EstimatedSalary": req.EstimatedSalary,

		"TenureByAge":         float64(req.Tenure) / float64(req.Age),
		"BalanceSalaryRatio":  req.Balance / req.EstimatedSalary,
		"CreditScoreGivenAge": float64(req.CreditScore) / float64(req.Age),
	}

	// Drop-first one-hot over geography: France is the baseline, and
	// any unrecognized value also falls through to all zeros.
	row["Geography_Germany"] = 0
	row["Geography_Spain"] = 0
	switch req.Geography {
	case "Germany":
		row["Geography_Germany"] = 1
	case "Spain":
		row["Geography_Spain"] = 1
	}

	// Reindex to the trained column order. Columns the request cannot
	// produce default to zero, mirroring the training export.
	vector := row.VectorFill(s.bundle.FeatureNames, 0)

	scaled, err := s.bundle.Scaler.Transform(vector)
	if err != nil {
		return nil, fmt.Errorf("%w: churn scaler rejected feature frame: %v", domain.ErrArtifactCorrupt, err)
	}

	p, err := s.bundle.Classifier.PredictProba(scaled)
	if err != nil {
		return nil, fmt.Errorf("churn inference: %w", err)
	}

	dec := &domain.ChurnDecision{
		ChurnProbability: math.Round(p*10000) / 10000,
	}
	if p > 0.5 {
		dec.Prediction = domain.ChurnPredictionLeaves
		dec.IsChurn = 1
	} else {
		dec.Prediction = domain.ChurnPredictionStays
	}
	if p > riskThreshold {
		dec.RiskLevel = domain.ChurnRiskHigh
	} else {
		dec.RiskLevel = domain.ChurnRiskLow
	}

	s.logger.DebugContext(ctx, "churn decision",
		slog.Float64("probability", dec.ChurnProbability),
		slog.String("risk_level", dec.RiskLevel))

	return dec, nil
}

// encodeGender maps the categorical gender to its trained numeric
// code. Both the dataset's English labels and the deployment's
// Spanish labels are accepted.
func encodeGender(gender string) (float64, error) {
	switch gender {
	case "Male", "Hombre":
		return 1, nil
	case "Female", "Mujer":
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: unknown Gender %q", domain.ErrInvalidInput, gender)
	}
}
