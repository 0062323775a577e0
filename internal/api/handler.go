package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/bankmind/internal/atm"
	"github.com/opensource-finance/bankmind/internal/churn"
	"github.com/opensource-finance/bankmind/internal/delinquency"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/fraud"
	"github.com/opensource-finance/bankmind/internal/rules"
)

// counterWindow bounds the per-service request counters kept in the
// cache. Counts reset when the window expires.
const counterWindow = 24 * time.Hour

// Services groups the prediction services behind the API. A nil entry
// means that service failed initialization; its routes serve 503.
type Services struct {
	Fraud       *fraud.Service
	Churn       *churn.Service
	Delinquency *delinquency.Service
	ATM         *atm.Service
}

// Handler holds dependencies for API handlers.
type Handler struct {
	services Services
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine

	decisionTTL time.Duration
	version     string

	// Windowed request counts per service, refreshed from the cache
	// counter on each request and surfaced by /health.
	fraudServed       atomic.Int64
	churnServed       atomic.Int64
	delinquencyServed atomic.Int64
	atmServed         atomic.Int64
}

// NewHandler creates a new API handler.
func NewHandler(services Services, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, fraudCfg domain.FraudConfig, version string) *Handler {
	ttl := time.Duration(fraudCfg.DecisionTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Handler{
		services:    services,
		repo:        repo,
		cache:       cache,
		bus:         bus,
		engine:      engine,
		decisionTTL: ttl,
		version:     version,
	}
}

// PredictFraud handles POST /fraud/predecir requests.
func (h *Handler) PredictFraud(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.services.Fraud == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "fraud service unavailable",
		})
		return
	}

	var req domain.FraudRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction_id is required",
		})
		return
	}

	decision, err := h.services.Fraud.Predict(ctx, &req)
	if err != nil {
		writeServiceError(w, "fraud", err)
		return
	}

	h.countRequest(ctx, "fraud", &h.fraudServed)

	// Keep the issued decision retrievable for a short window.
	if h.cache != nil {
		if err := h.cache.SetDecision(ctx, decision.TransactionID, decision, h.decisionTTL); err != nil {
			slog.Error("failed to cache decision",
				"transaction_id", decision.TransactionID, "error", err)
		}
	}

	h.publishDecision(ctx, &req, decision)

	writeJSON(w, http.StatusOK, decision)
}

// publishDecision emits the decision event, plus an alert event when
// the recommendation is to block. Publish failures are logged, never
// surfaced: the decision already stands.
func (h *Handler) publishDecision(ctx context.Context, req *domain.FraudRequest, decision *domain.FraudDecision) {
	if h.bus == nil {
		return
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		slog.Error("failed to marshal decision event", "error", err)
		return
	}
	if err := h.bus.Publish(ctx, domain.TopicFraudDecision, payload); err != nil {
		slog.Error("failed to publish decision event",
			"transaction_id", decision.TransactionID, "error", err)
	}

	if !decision.IsAlert() {
		return
	}

	event := domain.FraudAlertEvent{
		TransactionID: decision.TransactionID,
		CustomerID:    req.CustomerID,
		Score:         decision.Audit.ModelScore,
		FactorCount:   len(decision.RiskFactors),
		IssuedAtNanos: time.Now().UnixNano(),
	}
	alertPayload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal alert event", "error", err)
		return
	}
	if err := h.bus.Publish(ctx, domain.TopicFraudAlert, alertPayload); err != nil {
		slog.Error("failed to publish alert event",
			"transaction_id", decision.TransactionID, "error", err)
	}
}

// PredictChurn handles POST /fuga/predecir requests.
func (h *Handler) PredictChurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.services.Churn == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "churn service unavailable",
		})
		return
	}

	var req domain.ChurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	decision, err := h.services.Churn.Predict(ctx, &req)
	if err != nil {
		writeServiceError(w, "churn", err)
		return
	}

	h.countRequest(ctx, "churn", &h.churnServed)
	writeJSON(w, http.StatusOK, decision)
}

// PredictDelinquency handles POST /morosidad/predecir requests.
func (h *Handler) PredictDelinquency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.services.Delinquency == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "delinquency service unavailable",
		})
		return
	}

	var req domain.DelinquencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	decision, err := h.services.Delinquency.Predict(ctx, &req)
	if err != nil {
		writeServiceError(w, "delinquency", err)
		return
	}

	h.countRequest(ctx, "delinquency", &h.delinquencyServed)
	writeJSON(w, http.StatusOK, decision)
}

// PredictATM handles POST /retiro_atm/predecir requests.
func (h *Handler) PredictATM(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.services.ATM == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "atm withdrawal service unavailable",
		})
		return
	}

	var req domain.ATMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	decision, err := h.services.ATM.Predict(ctx, &req)
	if err != nil {
		writeServiceError(w, "atm", err)
		return
	}

	h.countRequest(ctx, "atm", &h.atmServed)
	writeJSON(w, http.StatusOK, decision)
}

// GetDecision retrieves a cached fraud decision by transaction id.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	if h.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "decision cache not available",
		})
		return
	}

	decision, err := h.cache.GetDecision(ctx, txID)
	if err != nil {
		slog.Error("failed to read cached decision", "transaction_id", txID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read decision",
		})
		return
	}
	if decision == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "decision not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// Alive handles GET /vivo, the minimal liveness probe.
func (h *Handler) Alive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "vivo",
	})
}

// Health returns server health status, per-service availability and
// the windowed request counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"version": h.version,
		"services": map[string]bool{
			"fraud":       h.services.Fraud != nil,
			"churn":       h.services.Churn != nil && h.services.Churn.Ready(),
			"delinquency": h.services.Delinquency != nil,
			"atm":         h.services.ATM != nil,
		},
		"requests": map[string]int64{
			"fraud":       h.fraudServed.Load(),
			"churn":       h.churnServed.Load(),
			"delinquency": h.delinquencyServed.Load(),
			"atm":         h.atmServed.Load(),
		},
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all loaded rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /reglas/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	// Return rules currently loaded in the engine (sourced from database)
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	// Check rules loaded in the engine (from database)
	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a risk rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Points      string `json:"points"`
	Detail      string `json:"detail"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a new risk rule and saves it to the database.
// After saving, call POST /reglas/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	ruleConfig := &domain.RiskRuleConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Points:      req.Points,
		Detail:      req.Detail,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by compiling it
	if err := h.engine.ValidateRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	// Persist to repository
	if h.repo != nil {
		if err := h.repo.SaveRiskRule(ctx, ruleConfig); err != nil {
			slog.Error("failed to save risk rule", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("risk rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /reglas/reload to apply changes.",
	})
}

// ReloadRules reloads all risk rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	// Load rules from database
	dbRules, err := h.repo.ListRiskRules(ctx)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	// Reload into engine
	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// countRequest bumps the windowed counter for a service. The cache
// holds the authoritative windowed count; the atomic mirrors the last
// value seen so /health can report it without a cache read.
func (h *Handler) countRequest(ctx context.Context, service string, served *atomic.Int64) {
	if h.cache == nil {
		served.Add(1)
		return
	}
	n, err := h.cache.IncrementCounter(ctx, "requests:"+service, counterWindow)
	if err != nil {
		slog.Error("failed to increment request counter", "service", service, "error", err)
		served.Add(1)
		return
	}
	served.Store(n)
}

// writeServiceError maps a prediction error onto the HTTP status
// contract: rejected input is 400, unavailable artifacts are 503, and
// anything else is an inference failure.
func writeServiceError(w http.ResponseWriter, service string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, domain.ErrArtifactMissing), errors.Is(err, domain.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": service + " model artifacts are not available",
		})
	default:
		slog.Error("prediction failed", "service", service, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "inference failed",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
