package domain

// DelinquencyRequest holds the 24 canonical financial-history fields
// for a credit-card holder. Field names match the trained column
// names exactly; the feature vector is these values reindexed into
// the model's column order, with nothing derived.
type DelinquencyRequest struct {
	LimitBal  float64 `json:"LIMIT_BAL"`
	Sex       int     `json:"SEX"`
	Education int     `json:"EDUCATION"`
	Marriage  int     `json:"MARRIAGE"`
	Age       int     `json:"AGE"`

	// Payment status codes for the last six months.
	Pay0 int `json:"PAY_0"`
	Pay2 int `json:"PAY_2"`
	Pay3 int `json:"PAY_3"`
	Pay4 int `json:"PAY_4"`
	Pay5 int `json:"PAY_5"`
	Pay6 int `json:"PAY_6"`

	// Bill amounts for the last six months.
	BillAmt1 float64 `json:"BILL_AMT1"`
	BillAmt2 float64 `json:"BILL_AMT2"`
	BillAmt3 float64 `json:"BILL_AMT3"`
	BillAmt4 float64 `json:"BILL_AMT4"`
	BillAmt5 float64 `json:"BILL_AMT5"`
	BillAmt6 float64 `json:"BILL_AMT6"`

	// Payment amounts for the last six months.
	PayAmt1 float64 `json:"PAY_AMT1"`
	PayAmt2 float64 `json:"PAY_AMT2"`
	PayAmt3 float64 `json:"PAY_AMT3"`
	PayAmt4 float64 `json:"PAY_AMT4"`
	PayAmt5 float64 `json:"PAY_AMT5"`
	PayAmt6 float64 `json:"PAY_AMT6"`

	UtilizationRate float64 `json:"UTILIZATION_RATE"`
}

// DelinquencyDecision is the payment-default prediction.
type DelinquencyDecision struct {
	Default            bool    `json:"default"`
	DefaultProbability float64 `json:"probabilidad_default"`
}
