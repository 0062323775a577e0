// Package fraud implements the card-transaction fraud decision
// service: feature reconstruction, categorical encoding with fallback,
// anomaly-score stacking, classification, and rule-based explanation.
package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/bankmind/internal/artifact"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/feature"
	"github.com/opensource-finance/bankmind/internal/rules"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dobLayout       = "2006-01-02"

	// anomalyColumn is the stacked feature produced by the companion
	// anomaly model; it is excluded from the base feature set.
	anomalyColumn = "anomaly_score"

	// verdictThreshold is the fixed probability cut for the verdict.
	verdictThreshold = 0.5
)

// encodedColumns are the categorical request fields encoded with the
// bundle's fitted label encoders.
var encodedColumns = []string{"category", "gender", "job"}

// Service scores card transactions against the fraud bundle. It is
// stateless per request: the bundle is immutable after construction
// and the service is safe for concurrent use.
type Service struct {
	bundle *artifact.FraudBundle
	engine *rules.Engine
}

// NewService builds the fraud service. A nil or incomplete bundle is
// a construction failure: the caller must treat this service as
// unavailable rather than crash the process.
func NewService(bundle *artifact.FraudBundle, engine *rules.Engine) (*Service, error) {
	if bundle == nil || bundle.Classifier == nil || bundle.Anomaly == nil || bundle.Scaler == nil {
		return nil, fmt.Errorf("fraud bundle is incomplete: %w", domain.ErrArtifactMissing)
	}
	for _, col := range encodedColumns {
		if bundle.Encoders[col] == nil {
			return nil, fmt.Errorf("fraud bundle has no encoder for %q: %w", col, domain.ErrArtifactMissing)
		}
	}
	if engine == nil {
		return nil, fmt.Errorf("risk rule engine is required")
	}
	return &Service{bundle: bundle, engine: engine}, nil
}

// Predict scores one transaction and assembles the decision record.
func (s *Service) Predict(ctx context.Context, req *domain.FraudRequest) (*domain.FraudDecision, error) {
	ts, err := time.Parse(timestampLayout, req.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: trans_date_trans_time: %v", domain.ErrInvalidInput, err)
	}
	dob, err := time.Parse(dobLayout, req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: dob: %v", domain.ErrInvalidInput, err)
	}

	// Derived features: age in whole years (floor of days/365),
	// hour of day, and great-circle distance to the merchant.
	age := int(ts.Sub(dob).Hours()/24) / 365
	hour := ts.Hour()
	distance := feature.Haversine(req.Long, req.Lat, req.MerchLong, req.MerchLat)

	row := feature.Row{
		"amt":         req.Amount,
		"city_pop":    float64(req.CityPop),
		"age":         float64(age),
		"hour":        float64(hour),
		"distance_km": distance,
	}

	// Categorical encoding with the documented unknown-value policy:
	// substitute the encoder's first known class and report it.
	var notices []string
	categoricals := map[string]string{
		"category": req.Category,
		"gender":   req.Gender,
		"job":      req.Job,
	}
	for _, col := range encodedColumns {
		enc, err := s.bundle.Encoders[col].EncodeOrFallback(categoricals[col])
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", col, err)
		}
		if enc.FallbackUsed {
			notice := fmt.Sprintf("valor desconocido %q en columna %q, usando por defecto %q",
				enc.Original, col, enc.Substituted)
			notices = append(notices, notice)
			slog.Warn("encoder fallback",
				"column", col,
				"value", enc.Original,
				"substituted", enc.Substituted,
				"transaction_id", req.TransactionID,
			)
		}
		row[col] = enc.Code
	}

	// Base feature set: the classifier's trained column order minus
	// the stacked anomaly column.
	trained := s.bundle.Classifier.FeatureNames()
	baseCols := feature.Without(trained, anomalyColumn)

	if _, err := row.Vector(baseCols); err != nil {
		return nil, err
	}

	// Scale the fitted numeric subset in place; other columns stay raw.
	scaleCols := s.bundle.Scaler.Columns()
	subset, err := row.Vector(scaleCols)
	if err != nil {
		return nil, err
	}
	scaled, err := s.bundle.Scaler.Transform(subset)
	if err != nil {
		return nil, fmt.Errorf("scaling features: %w", err)
	}
	for i, col := range scaleCols {
		row[col] = scaled[i]
	}

	baseVec, err := row.Vector(baseCols)
	if err != nil {
		return nil, err
	}

	// Stack the anomaly score as an extra feature, then align to the
	// classifier's full trained order.
	anomaly, err := s.bundle.Anomaly.DecisionFunction(baseVec)
	if err != nil {
		return nil, fmt.Errorf("anomaly scoring: %w", err)
	}
	row[anomalyColumn] = anomaly

	finalVec, err := row.Vector(trained)
	if err != nil {
		return nil, err
	}

	probability, err := s.bundle.Classifier.PredictProba(finalVec)
	if err != nil {
		return nil, fmt.Errorf("classifying transaction: %w", err)
	}

	verdict := domain.VerdictLegitimate
	recommendation := domain.RecommendApprove
	if probability > verdictThreshold {
		verdict = domain.VerdictHighRisk
		recommendation = domain.RecommendBlock
	}

	// Explanatory rules run on raw values, never scaled ones.
	factors := s.engine.Evaluate(ctx, &rules.Activation{
		Amount:     req.Amount,
		Hour:       hour,
		DistanceKM: distance,
		Age:        age,
		CityPop:    req.CityPop,
	})

	return &domain.FraudDecision{
		TransactionID: req.TransactionID,
		Verdict:       verdict,
		Score:         fmt.Sprintf("%.1f%%", probability*100),
		RiskFactors:   factors,
		Audit: domain.FraudAudit{
			ModelScore:        probability,
			AnomalyScore:      anomaly,
			DetectionScenario: len(factors) + 1,
		},
		Recommendation: recommendation,
		Notices:        notices,
	}, nil
}
