// Package delinquency predicts credit-card payment default from a
// customer's 24-field financial history. The classifier loads lazily
// on the first request and is cached for the process lifetime.
package delinquency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/feature"
)

// ClassifierSource yields the delinquency classifier on demand.
// artifact.LazyClassifier is the production implementation.
type ClassifierSource interface {
	Get() (domain.Classifier, error)
}

// Service scores payment-default risk. Nothing is derived from the
// request: the 24 fields map one-to-one onto trained columns and are
// reindexed into the order the artifact carries.
type Service struct {
	source ClassifierSource
	logger *slog.Logger
}

// NewService builds the delinquency service around a classifier
// source. Construction never touches the artifact.
func NewService(source ClassifierSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger.With(slog.String("service", "delinquency"))}
}

// Predict scores one customer. A default verdict means the predicted
// class is 1, which with a binary classifier is probability above 0.5.
func (s *Service) Predict(ctx context.Context, req *domain.DelinquencyRequest) (*domain.DelinquencyDecision, error) {
	clf, err := s.source.Get()
	if err != nil {
		return nil, err
	}

	row := feature.Row{
		"LIMIT_BAL": req.LimitBal,
		"SEX":       float64(req.Sex),
		"EDUCATION": float64(req.Education),
		"MARRIAGE":  float64(req.Marriage),
		"AGE":       float64(req.Age),

		"PAY_0": float64(req.Pay0),
		"PAY_2": float64(req.Pay2),
		"PAY_3": float64(req.Pay3),
		"PAY_4": float64(req.Pay4),
		"PAY_5": float64(req.Pay5),
		"PAY_6": float64(req.Pay6),

		"BILL_AMT1": req.BillAmt1,
		"BILL_AMT2": req.BillAmt2,
		"BILL_AMT3": req.BillAmt3,
		"BILL_AMT4": req.BillAmt4,
		"BILL_AMT5": req.BillAmt5,
		"BILL_AMT6": req.BillAmt6,

		"PAY_AMT1": req.PayAmt1,
		"PAY_AMT2": req.PayAmt2,
		"PAY_AMT3": req.PayAmt3,
		"PAY_AMT4": req.PayAmt4,
		"PAY_AMT5": req.PayAmt5,
		"PAY_AMT6": req.PayAmt6,

		"UTILIZATION_RATE": req.UtilizationRate,
	}

	vector, err := row.Vector(clf.FeatureNames())
	if err != nil {
		return nil, fmt.Errorf("delinquency feature frame: %w", err)
	}

	p, err := clf.PredictProba(vector)
	if err != nil {
		return nil, fmt.Errorf("delinquency inference: %w", err)
	}

	dec := &domain.DelinquencyDecision{
		Default:            p > 0.5,
		DefaultProbability: p,
	}

	s.logger.DebugContext(ctx, "delinquency decision",
		slog.Bool("default", dec.Default),
		slog.Float64("probability", dec.DefaultProbability))

	return dec, nil
}
