// Package atm forecasts single-day cash withdrawals for an ATM. The
// regressor was fitted on a log1p-transformed target, so raw model
// output is mapped back to currency units with expm1.
package atm

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/opensource-finance/bankmind/internal/domain"
)

// atmColumns is the fixed trained input order. The 18 fields carry no
// derivation step; the request maps positionally onto this vector.
var atmColumns = []string{
	"dia_semana", "quincena", "semana_mes", "dia_mes",
	"lag1", "lag5", "lag7", "lag11", "tendencia_lags",
	"esFeriado", "caida_reciente", "volatilidad_reciente",
	"media_movil_3d", "retiros_finde_anterior",
	"lunes_post_finde_bajo", "domingo_bajo",
	"ubicacion", "ambiente",
}

// Service runs the withdrawal regressor. Construction fails hard when
// the artifact's column contract does not match the request schema.
type Service struct {
	regressor domain.Regressor
	logger    *slog.Logger
}

// NewService builds the ATM service around a loaded regressor.
func NewService(regressor domain.Regressor, logger *slog.Logger) (*Service, error) {
	if regressor == nil {
		return nil, fmt.Errorf("%w: atm regressor not loaded", domain.ErrArtifactMissing)
	}
	if got := len(regressor.FeatureNames()); got != len(atmColumns) {
		return nil, fmt.Errorf("%w: atm regressor expects %d features, serving schema has %d",
			domain.ErrArtifactCorrupt, got, len(atmColumns))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{regressor: regressor, logger: logger.With(slog.String("service", "atm"))}, nil
}

// Predict forecasts the withdrawal amount for one ATM-day.
func (s *Service) Predict(ctx context.Context, req *domain.ATMRequest) (*domain.ATMDecision, error) {
	vector := []float64{
		float64(req.DiaSemana),
		float64(req.Quincena),
		float64(req.SemanaMes),
		req.DiaMes,
		req.Lag1,
		req.Lag5,
		req.Lag7,
		req.Lag11,
		req.TendenciaLags,
		float64(req.EsFeriado),
		float64(req.CaidaReciente),
		req.VolatilidadReciente,
		req.MediaMovil3D,
		req.RetirosFindeAnterior,
		float64(req.LunesPostFindeBajo),
		float64(req.DomingoBajo),
		float64(req.Ubicacion),
		float64(req.Ambiente),
	}

	raw, err := s.regressor.Predict(vector)
	if err != nil {
		return nil, fmt.Errorf("atm inference: %w", err)
	}

	withdrawal := math.Expm1(raw)

	s.logger.DebugContext(ctx, "atm forecast",
		slog.Float64("raw", raw),
		slog.Float64("withdrawal", withdrawal))

	return &domain.ATMDecision{Withdrawal: withdrawal}, nil
}

// Columns returns the trained input order, mostly for diagnostics.
func Columns() []string {
	out := make([]string, len(atmColumns))
	copy(out, atmColumns)
	return out
}
