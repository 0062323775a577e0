package domain

// FraudRequest is the validated card-transaction record the fraud
// service scores. Field names follow the trained dataset schema.
type FraudRequest struct {
	TransactionID string  `json:"transaction_id"`
	CustomerID    string  `json:"id_cliente"`
	Timestamp     string  `json:"trans_date_trans_time"` // YYYY-MM-DD HH:MM:SS
	Amount        float64 `json:"amt"`
	Category      string  `json:"category"`
	Gender        string  `json:"gender"`
	Job           string  `json:"job"`
	CityPop       int     `json:"city_pop"`
	DateOfBirth   string  `json:"dob"` // YYYY-MM-DD
	Lat           float64 `json:"lat"`
	Long          float64 `json:"long"`
	MerchLat      float64 `json:"merch_lat"`
	MerchLong     float64 `json:"merch_long"`
}

// RiskFactor is one explanatory contribution in a fraud decision.
// Factors are advisory: they never alter the model verdict.
type RiskFactor struct {
	Factor      string `json:"factor"`
	Points      string `json:"puntos"`
	Description string `json:"descripcion"`
}

// FraudAudit carries the raw model outputs behind a decision.
type FraudAudit struct {
	ModelScore        float64 `json:"xgboost_score"`
	AnomalyScore      float64 `json:"iforest_score"`
	DetectionScenario int     `json:"detection_scenario"`
}

// FraudDecision is the assembled verdict for one transaction.
type FraudDecision struct {
	TransactionID  string       `json:"transaction_id"`
	Verdict        string       `json:"veredicto"`   // "ALTO RIESGO" or "LEGÍTIMO"
	Score          string       `json:"score_final"` // e.g. "97.3%"
	RiskFactors    []RiskFactor `json:"detalles_riesgo"`
	Audit          FraudAudit   `json:"datos_auditoria"`
	Recommendation string       `json:"recomendacion"`

	// Notices records recoverable diagnostics raised while building
	// the feature vector (encoder fallbacks).
	Notices []string `json:"avisos,omitempty"`
}

// Fraud verdict and recommendation constants. Values are part of the
// wire contract inherited from the trained deployment.
const (
	VerdictHighRisk   = "ALTO RIESGO"
	VerdictLegitimate = "LEGÍTIMO"

	RecommendBlock   = "Bloquear y Notificar"
	RecommendApprove = "Aprobar"
)

// IsAlert reports whether the decision should trigger a notification.
func (d *FraudDecision) IsAlert() bool {
	return d.Verdict == VerdictHighRisk
}
