package churn

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/opensource-finance/bankmind/internal/artifact"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/model"
)

var churnColumns = []string{
	"CreditScore", "Gender", "Age", "Tenure", "Balance",
	"NumOfProducts", "HasCrCard", "IsActiveMember", "EstimatedSalary",
	"Geography_Germany", "Geography_Spain",
	"TenureByAge", "BalanceSalaryRatio", "CreditScoreGivenAge",
}

type stubClassifier struct {
	features []string
	proba    float64
	got      []float64
}

func (s *stubClassifier) FeatureNames() []string { return s.features }

func (s *stubClassifier) PredictProba(features []float64) (float64, error) {
	if len(features) != len(s.features) {
		return 0, errors.New("feature count mismatch")
	}
	s.got = append([]float64(nil), features...)
	return s.proba, nil
}

func testBundle(proba float64, columns []string) (*artifact.ChurnBundle, *stubClassifier) {
	scale := make([]float64, len(columns))
	for i := range scale {
		scale[i] = 1
	}
	clf := &stubClassifier{features: columns, proba: proba}
	return &artifact.ChurnBundle{
		Classifier: clf,
		Scaler: &model.StandardScaler{
			Cols:  columns,
			Mean:  make([]float64, len(columns)),
			Scale: scale,
		},
		FeatureNames: columns,
	}, clf
}

func baseRequest() *domain.ChurnRequest {
	return &domain.ChurnRequest{
		CreditScore:     650,
		Geography:       "France",
		Gender:          "Female",
		Age:             40,
		Tenure:          8,
		Balance:         120000,
		NumOfProducts:   2,
		HasCrCard:       1,
		IsActiveMember:  0,
		EstimatedSalary: 60000,
	}
}

func TestPredictNotReady(t *testing.T) {
	svc := NewService(&artifact.ChurnBundle{}, nil)
	if svc.Ready() {
		t.Error("empty bundle must not report ready")
	}
	_, err := svc.Predict(context.Background(), baseRequest())
	if !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestPredictInvalidInput(t *testing.T) {
	bundle, _ := testBundle(0.3, churnColumns)
	svc := NewService(bundle, nil)

	cases := []struct {
		name   string
		mutate func(*domain.ChurnRequest)
	}{
		{"zero age", func(r *domain.ChurnRequest) { r.Age = 0 }},
		{"negative age", func(r *domain.ChurnRequest) { r.Age = -3 }},
		{"zero salary", func(r *domain.ChurnRequest) { r.EstimatedSalary = 0 }},
		{"unknown gender", func(r *domain.ChurnRequest) { r.Gender = "Other" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(req)
			if _, err := svc.Predict(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPredictGeographyOneHot(t *testing.T) {
	cases := []struct {
		geography   string
		wantGermany float64
		wantSpain   float64
	}{
		{"France", 0, 0},
		{"Germany", 1, 0},
		{"Spain", 0, 1},
		{"Atlantis", 0, 0}, // unknown falls through to the baseline
	}

	for _, tc := range cases {
		t.Run(tc.geography, func(t *testing.T) {
			bundle, clf := testBundle(0.3, churnColumns)
			svc := NewService(bundle, nil)

			req := baseRequest()
			req.Geography = tc.geography
			if _, err := svc.Predict(context.Background(), req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if clf.got[9] != tc.wantGermany {
				t.Errorf("Geography_Germany = %v, want %v", clf.got[9], tc.wantGermany)
			}
			if clf.got[10] != tc.wantSpain {
				t.Errorf("Geography_Spain = %v, want %v", clf.got[10], tc.wantSpain)
			}
		})
	}
}

func TestPredictEngineeredFeatures(t *testing.T) {
	bundle, clf := testBundle(0.3, churnColumns)
	svc := NewService(bundle, nil)

	req := baseRequest()
	req.Gender = "Hombre"
	if _, err := svc.Predict(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if clf.got[1] != 1 {
		t.Errorf("Gender = %v, want 1 for Hombre", clf.got[1])
	}
	if clf.got[11] != 8.0/40.0 {
		t.Errorf("TenureByAge = %v, want %v", clf.got[11], 8.0/40.0)
	}
	if clf.got[12] != 120000.0/60000.0 {
		t.Errorf("BalanceSalaryRatio = %v, want 2", clf.got[12])
	}
	if clf.got[13] != 650.0/40.0 {
		t.Errorf("CreditScoreGivenAge = %v, want %v", clf.got[13], 650.0/40.0)
	}
}

func TestPredictReindexFillsMissingColumns(t *testing.T) {
	// A trained column the request cannot produce defaults to zero.
	columns := append(append([]string{}, churnColumns...), "ExitedLastQuarter")
	bundle, clf := testBundle(0.3, columns)
	svc := NewService(bundle, nil)

	if _, err := svc.Predict(context.Background(), baseRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clf.got[len(columns)-1] != 0 {
		t.Errorf("unmapped column = %v, want zero fill", clf.got[len(columns)-1])
	}
}

func TestPredictThresholds(t *testing.T) {
	cases := []struct {
		proba          float64
		wantPrediction string
		wantIsChurn    int
		wantRisk       string
	}{
		{0.2, domain.ChurnPredictionStays, 0, domain.ChurnRiskLow},
		{0.45, domain.ChurnPredictionStays, 0, domain.ChurnRiskLow}, // boundary stays low
		{0.46, domain.ChurnPredictionStays, 0, domain.ChurnRiskHigh},
		{0.5, domain.ChurnPredictionStays, 0, domain.ChurnRiskHigh},
		{0.51, domain.ChurnPredictionLeaves, 1, domain.ChurnRiskHigh},
		{0.97, domain.ChurnPredictionLeaves, 1, domain.ChurnRiskHigh},
	}

	for _, tc := range cases {
		t.Run(strconv.FormatFloat(tc.proba, 'f', -1, 64), func(t *testing.T) {
			bundle, _ := testBundle(tc.proba, churnColumns)
			svc := NewService(bundle, nil)

			dec, err := svc.Predict(context.Background(), baseRequest())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dec.Prediction != tc.wantPrediction {
				t.Errorf("prediction = %q, want %q", dec.Prediction, tc.wantPrediction)
			}
			if dec.IsChurn != tc.wantIsChurn {
				t.Errorf("is_churn = %d, want %d", dec.IsChurn, tc.wantIsChurn)
			}
			if dec.RiskLevel != tc.wantRisk {
				t.Errorf("risk_level = %q, want %q", dec.RiskLevel, tc.wantRisk)
			}
		})
	}
}

func TestPredictProbabilityRounding(t *testing.T) {
	bundle, _ := testBundle(0.123456789, churnColumns)
	svc := NewService(bundle, nil)

	dec, err := svc.Predict(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.ChurnProbability != 0.1235 {
		t.Errorf("probability = %v, want 0.1235", dec.ChurnProbability)
	}
}
