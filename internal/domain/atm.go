package domain

// ATMRequest holds the 18 time-series features describing an ATM's
// calendar position and recent withdrawal history.
type ATMRequest struct {
	DiaSemana            int     `json:"dia_semana"`
	Quincena             int     `json:"quincena"`
	SemanaMes            int     `json:"semana_mes"`
	DiaMes               float64 `json:"dia_mes"`
	Lag1                 float64 `json:"lag1"`
	Lag5                 float64 `json:"lag5"`
	Lag7                 float64 `json:"lag7"`
	Lag11                float64 `json:"lag11"`
	TendenciaLags        float64 `json:"tendencia_lags"`
	EsFeriado            int     `json:"esFeriado"`
	CaidaReciente        int     `json:"caida_reciente"`
	VolatilidadReciente  float64 `json:"volatilidad_reciente"`
	MediaMovil3D         float64 `json:"media_movil_3d"`
	RetirosFindeAnterior float64 `json:"retiros_finde_anterior"`
	LunesPostFindeBajo   int     `json:"lunes_post_finde_bajo"`
	DomingoBajo          int     `json:"domingo_bajo"`
	Ubicacion            int     `json:"ubicacion"`
	Ambiente             int     `json:"ambiente"`
}

// ATMDecision is the predicted single-day withdrawal amount, already
// inverse-transformed back to currency units.
type ATMDecision struct {
	Withdrawal float64 `json:"retiro"`
}
