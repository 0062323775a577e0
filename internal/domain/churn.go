package domain

// ChurnRequest is the bank-customer record the churn service scores.
type ChurnRequest struct {
	CreditScore     int     `json:"CreditScore"`
	Geography       string  `json:"Geography"` // France, Spain, Germany
	Gender          string  `json:"Gender"`    // Male, Female (Hombre, Mujer accepted)
	Age             int     `json:"Age"`
	Tenure          int     `json:"Tenure"`
	Balance         float64 `json:"Balance"`
	NumOfProducts   int     `json:"NumOfProducts"`
	HasCrCard       int     `json:"HasCrCard"`
	IsActiveMember  int     `json:"IsActiveMember"`
	EstimatedSalary float64 `json:"EstimatedSalary"`
}

// ChurnDecision is the churn prediction for one customer.
type ChurnDecision struct {
	Prediction       string  `json:"prediction"` // "Abandona (Churn)" or "Se Queda"
	ChurnProbability float64 `json:"churn_probability"`
	RiskLevel        string  `json:"risk_level"` // "Alto" or "Bajo"
	IsChurn          int     `json:"is_churn"`
}

// Churn decision constants.
const (
	ChurnPredictionLeaves = "Abandona (Churn)"
	ChurnPredictionStays  = "Se Queda"

	ChurnRiskHigh = "Alto"
	ChurnRiskLow  = "Bajo"
)
