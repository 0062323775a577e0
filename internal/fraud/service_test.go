package fraud

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/opensource-finance/bankmind/internal/artifact"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/model"
	"github.com/opensource-finance/bankmind/internal/rules"
)

// stubClassifier returns a fixed probability and captures its input.
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

// stubAnomaly returns a fixed anomaly score.
type stubAnomaly struct {
	score float64
	got   []float64
}

func (s *stubAnomaly) DecisionFunction(features []float64) (float64, error) {
	s.got = append([]float64(nil), features...)
	return s.score, nil
}

var trainedColumns = []string{"amt", "category", "gender", "job", "city_pop", "age", "distance_km", "hour", "anomaly_score"}

// identityScaler builds a fitted scaler that leaves values unchanged.
func identityScaler() *model.StandardScaler {
	cols := []string{"amt", "city_pop", "age", "distance_km", "hour"}
	return &model.StandardScaler{
		Cols:  cols,
		Mean:  make([]float64, len(cols)),
		Scale: []float64{1, 1, 1, 1, 1},
	}
}

func testBundle(clf domain.Classifier, anomaly domain.AnomalyScorer) *artifact.FraudBundle {
	return &artifact.FraudBundle{
		Classifier: clf,
		Anomaly:    anomaly,
		Scaler:     identityScaler(),
		Encoders: map[string]*model.LabelEncoder{
			"category": {Classes: []string{"food", "shopping_net", "travel"}},
			"gender":   {Classes: []string{"F", "M"}},
			"job":      {Classes: []string{"Engineer", "Scientist", "Teacher"}},
		},
	}
}

func testEngine(t *testing.T) *rules.Engine {
	t.Helper()
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.LoadRules(rules.DefaultRules(1000)); err != nil {
		t.Fatalf("failed to load default rules: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

// highRiskRequest is the canonical early-morning, far-from-home,
// high-amount transaction.
func highRiskRequest() *domain.FraudRequest {
	return &domain.FraudRequest{
		TransactionID: "TXN-9834",
		CustomerID:    "CLI-5502",
		Timestamp:     "2026-01-08 03:24:15",
		Amount:        15420.0,
		Category:      "shopping_net",
		Gender:        "F",
		Job:           "Scientist",
		CityPop:       15000,
		DateOfBirth:   "1985-01-15",
		Lat:           -12.0463,
		Long:          -77.0427,
		MerchLat:      -13.1631,
		MerchLong:     -74.2239,
	}
}

func TestNewServiceIncompleteBundle(t *testing.T) {
	engine := testEngine(t)

	if _, err := NewService(nil, engine); err == nil {
		t.Error("expected construction failure for nil bundle")
	}

	bundle := testBundle(&stubClassifier{features: trainedColumns, proba: 0.5}, &stubAnomaly{})
	bundle.Scaler = nil
	if _, err := NewService(bundle, engine); err == nil {
		t.Error("expected construction failure for missing scaler")
	}

	bundle = testBundle(&stubClassifier{features: trainedColumns, proba: 0.5}, &stubAnomaly{})
	delete(bundle.Encoders, "job")
	if _, err := NewService(bundle, engine); err == nil {
		t.Error("expected construction failure for missing encoder")
	}
}

func TestPredictHighRiskScenario(t *testing.T) {
	clf := &stubClassifier{features: trainedColumns, proba: 0.973}
	anomaly := &stubAnomaly{score: -0.12}
	svc, err := NewService(testBundle(clf, anomaly), testEngine(t))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	dec, err := svc.Predict(context.Background(), highRiskRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dec.Verdict != domain.VerdictHighRisk {
		t.Errorf("verdict = %q, want %q", dec.Verdict, domain.VerdictHighRisk)
	}
	if dec.Score != "97.3%" {
		t.Errorf("score = %q, want 97.3%%", dec.Score)
	}
	if dec.Recommendation != domain.RecommendBlock {
		t.Errorf("recommendation = %q, want %q", dec.Recommendation, domain.RecommendBlock)
	}

	// Early morning + >100 km + >1000 amount: all three factors.
	if len(dec.RiskFactors) != 3 {
		t.Fatalf("expected 3 risk factors, got %d: %+v", len(dec.RiskFactors), dec.RiskFactors)
	}
	wantFactors := []string{"Horario Inusual", "Distancia Anómala", "Monto Elevado"}
	for i, want := range wantFactors {
		if dec.RiskFactors[i].Factor != want {
			t.Errorf("factor[%d] = %q, want %q", i, dec.RiskFactors[i].Factor, want)
		}
	}
	if dec.RiskFactors[0].Points != "+35pts" {
		t.Errorf("unusual-hour points = %q, want +35pts", dec.RiskFactors[0].Points)
	}

	if dec.Audit.DetectionScenario != 4 {
		t.Errorf("detection scenario = %d, want 4", dec.Audit.DetectionScenario)
	}
	if dec.Audit.ModelScore != 0.973 {
		t.Errorf("model score = %v, want 0.973", dec.Audit.ModelScore)
	}
	if dec.Audit.AnomalyScore != -0.12 {
		t.Errorf("anomaly score = %v, want -0.12", dec.Audit.AnomalyScore)
	}
	if len(dec.Notices) != 0 {
		t.Errorf("expected no notices for fully known categoricals, got %v", dec.Notices)
	}
}

func TestPredictFeatureAlignment(t *testing.T) {
	clf := &stubClassifier{features: trainedColumns, proba: 0.2}
	anomaly := &stubAnomaly{score: 0.07}
	svc, err := NewService(testBundle(clf, anomaly), testEngine(t))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	req := highRiskRequest()
	if _, err := svc.Predict(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(clf.got) != len(trainedColumns) {
		t.Fatalf("classifier received %d features, want %d", len(clf.got), len(trainedColumns))
	}
	// With the identity scaler, positions carry the raw derived
	// values in trained column order.
	if clf.got[0] != 15420.0 {
		t.Errorf("amt position = %v, want 15420", clf.got[0])
	}
	if clf.got[1] != 1 { // shopping_net encodes to 1
		t.Errorf("category position = %v, want 1", clf.got[1])
	}
	if clf.got[5] != 41 { // floor(days/365) between 1985-01-15 and 2026-01-08
		t.Errorf("age position = %v, want 41", clf.got[5])
	}
	if clf.got[7] != 3 {
		t.Errorf("hour position = %v, want 3", clf.got[7])
	}
	if clf.got[8] != 0.07 {
		t.Errorf("anomaly position = %v, want the stacked anomaly score", clf.got[8])
	}
	if clf.got[6] <= 100 {
		t.Errorf("distance position = %v, want > 100 km", clf.got[6])
	}

	// The anomaly model sees the base features only.
	if len(anomaly.got) != len(trainedColumns)-1 {
		t.Errorf("anomaly model received %d features, want %d", len(anomaly.got), len(trainedColumns)-1)
	}
}

func TestPredictUnknownCategoricalFallsBack(t *testing.T) {
	clf := &stubClassifier{features: trainedColumns, proba: 0.3}
	svc, err := NewService(testBundle(clf, &stubAnomaly{}), testEngine(t))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	req := highRiskRequest()
	req.Job = "Manager" // unknown to the fitted encoder

	dec, err := svc.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("unknown categorical must not fail the request: %v", err)
	}

	if len(dec.Notices) != 1 {
		t.Fatalf("expected 1 fallback notice, got %v", dec.Notices)
	}
	if !strings.Contains(dec.Notices[0], "Manager") || !strings.Contains(dec.Notices[0], "Engineer") {
		t.Errorf("notice should name original and substituted values: %q", dec.Notices[0])
	}
	if clf.got[3] != 0 { // first class of the job encoder
		t.Errorf("job position = %v, want fallback code 0", clf.got[3])
	}
}

func TestPredictVerdictThreshold(t *testing.T) {
	cases := []struct {
		proba       float64
		wantVerdict string
		wantRec     string
	}{
		{0.973, domain.VerdictHighRisk, domain.RecommendBlock},
		{0.51, domain.VerdictHighRisk, domain.RecommendBlock},
		{0.5, domain.VerdictLegitimate, domain.RecommendApprove}, // boundary stays legitimate
		{0.02, domain.VerdictLegitimate, domain.RecommendApprove},
	}

	for _, tc := range cases {
		t.Run(strconv.FormatFloat(tc.proba, 'f', -1, 64), func(t *testing.T) {
			clf := &stubClassifier{features: trainedColumns, proba: tc.proba}
			svc, err := NewService(testBundle(clf, &stubAnomaly{}), testEngine(t))
			if err != nil {
				t.Fatalf("failed to build service: %v", err)
			}

			dec, err := svc.Predict(context.Background(), highRiskRequest())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dec.Verdict != tc.wantVerdict {
				t.Errorf("verdict = %q, want %q", dec.Verdict, tc.wantVerdict)
			}
			if dec.Recommendation != tc.wantRec {
				t.Errorf("recommendation = %q, want %q", dec.Recommendation, tc.wantRec)
			}

			// score_final must parse back to a percentage in [0,100].
			pct, err := strconv.ParseFloat(strings.TrimSuffix(dec.Score, "%"), 64)
			if err != nil {
				t.Fatalf("score %q is not a percentage: %v", dec.Score, err)
			}
			if pct < 0 || pct > 100 {
				t.Errorf("score %v out of [0,100]", pct)
			}
		})
	}
}

func TestPredictInvalidTimestamps(t *testing.T) {
	svc, err := NewService(testBundle(&stubClassifier{features: trainedColumns}, &stubAnomaly{}), testEngine(t))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	req := highRiskRequest()
	req.Timestamp = "08/01/2026 03:24"
	if _, err := svc.Predict(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad timestamp, got %v", err)
	}

	req = highRiskRequest()
	req.DateOfBirth = "not-a-date"
	if _, err := svc.Predict(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad dob, got %v", err)
	}
}

func TestPredictColumnDriftFails(t *testing.T) {
	// A classifier trained with a column the service cannot derive
	// must fail the request, not guess.
	drifted := append([]string{"merchant_risk"}, trainedColumns...)
	svc, err := NewService(testBundle(&stubClassifier{features: drifted}, &stubAnomaly{}), testEngine(t))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	_, err = svc.Predict(context.Background(), highRiskRequest())
	if !errors.Is(err, domain.ErrColumnMissing) {
		t.Errorf("expected ErrColumnMissing, got %v", err)
	}
}
