package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, services Services, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, fraudCfg domain.FraudConfig, version string) *Server {
	handler := NewHandler(services, repo, cache, bus, engine, fraudCfg, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Liveness and health endpoints
	router.Get("/vivo", handler.Alive)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Prediction endpoints, one per service
	router.Post("/fraud/predecir", handler.PredictFraud)
	router.Post("/fuga/predecir", handler.PredictChurn)
	router.Post("/morosidad/predecir", handler.PredictDelinquency)
	router.Post("/retiro_atm/predecir", handler.PredictATM)

	// Decision retrieval
	router.Get("/fraud/decisiones/{id}", handler.GetDecision)

	// Risk rule management
	router.Get("/reglas", handler.ListRules)
	router.Get("/reglas/{id}", handler.GetRule)
	router.Post("/reglas", handler.CreateRule)
	router.Post("/reglas/reload", handler.ReloadRules)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
