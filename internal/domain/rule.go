package domain

// RiskRuleConfig defines one explanatory risk rule for the fraud
// service. Rules are CEL expressions over the raw (unscaled) derived
// features of a transaction; a rule that evaluates true contributes a
// RiskFactor to the decision. Rules never change the model verdict.
type RiskRuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`

	// Expression is a CEL expression returning bool. Available
	// variables: amount, hour, distance_km, age, city_pop.
	Expression string `json:"expression"`

	// Points is the advisory weight tag, e.g. "+35pts".
	Points string `json:"points"`

	// Detail is the factor description template. Placeholders of the
	// form {var} or {var:%.1f} are substituted with activation
	// values, e.g. "Ubicación a {distance_km:%.1f} km del domicilio".
	Detail string `json:"detail"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}
