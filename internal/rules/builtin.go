package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/bankmind/internal/domain"
)

// DefaultRules returns the built-in explanatory risk rules, matching
// the behavior the fraud model was deployed with. The elevated-amount
// threshold is configurable; the trained model never depends on it.
func DefaultRules(elevatedAmountThreshold float64) []*domain.RiskRuleConfig {
	return []*domain.RiskRuleConfig{
		{
			ID:         "fraud-unusual-hour",
			Name:       "Horario Inusual",
			Version:    "1.0.0",
			Expression: "hour <= 3 || hour >= 22",
			Points:     "+35pts",
			Detail:     "Transacción realizada a las {hour}:00 h (Madrugada/Noche)",
			Enabled:    true,
		},
		{
			ID:         "fraud-anomalous-distance",
			Name:       "Distancia Anómala",
			Version:    "1.0.0",
			Expression: "distance_km > 100.0",
			Points:     "+30pts",
			Detail:     "Ubicación a {distance_km:%.1f} km del domicilio habitual",
			Enabled:    true,
		},
		{
			ID:         "fraud-elevated-amount",
			Name:       "Monto Elevado",
			Version:    "1.0.0",
			Expression: fmt.Sprintf("amount > %s", celDouble(elevatedAmountThreshold)),
			Points:     "+22pts",
			Detail:     "Monto superior al promedio estándar",
			Enabled:    true,
		},
	}
}

// celDouble renders a float as a CEL double literal. The literal
// needs a decimal point so the comparison stays double vs double.
func celDouble(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
