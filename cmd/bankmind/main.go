// BankMind - Prediction serving for pre-fitted banking models.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/bankmind/internal/api"
	"github.com/opensource-finance/bankmind/internal/artifact"
	"github.com/opensource-finance/bankmind/internal/atm"
	"github.com/opensource-finance/bankmind/internal/bus"
	"github.com/opensource-finance/bankmind/internal/cache"
	"github.com/opensource-finance/bankmind/internal/churn"
	"github.com/opensource-finance/bankmind/internal/delinquency"
	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/fraud"
	"github.com/opensource-finance/bankmind/internal/notifier"
	"github.com/opensource-finance/bankmind/internal/repository"
	"github.com/opensource-finance/bankmind/internal/rules"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("BANKMIND_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting bankmind",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("BANKMIND_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	// Environment overrides
	if dir := os.Getenv("BANKMIND_MODELS_DIR"); dir != "" {
		cfg.Artifacts.Dir = dir
	}
	if raw := os.Getenv("BANKMIND_FRAUD_AMOUNT_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cfg.Fraud.ElevatedAmountThreshold = v
		} else {
			slog.Warn("ignoring invalid BANKMIND_FRAUD_AMOUNT_THRESHOLD", "value", raw)
		}
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Load rules from database; fall back to the built-in defaults
	if err := loadRules(ctx, repo, engine, cfg.Fraud.ElevatedAmountThreshold); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Resolve the models directory
	modelsDir := cfg.Artifacts.Dir
	if modelsDir == "" {
		modelsDir = artifact.DefaultDir()
	}
	slog.Info("loading model artifacts", "dir", modelsDir)

	// Load artifacts and build the prediction services. A hard-init
	// failure disables that one service; the rest keep serving.
	services := buildServices(ctx, modelsDir, engine, repo)

	// Initialize the alert notifier (block-and-notify consumer)
	alertNotifier := notifier.New(busImpl, logger)
	if err := alertNotifier.Start(); err != nil {
		slog.Error("failed to start alert notifier", "error", err)
		os.Exit(1)
	}
	slog.Info("alert notifier started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, services, repo, cacheImpl, busImpl, engine, cfg.Fraud, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("bankmind is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the notifier first so in-flight alerts drain
	if err := alertNotifier.Stop(); err != nil {
		slog.Error("failed to stop alert notifier", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("bankmind shutdown complete")
}

// buildServices loads each service's artifacts and constructs whatever
// can serve. Loaded bundles are recorded in the artifact registry.
func buildServices(ctx context.Context, modelsDir string, engine *rules.Engine, repo domain.Repository) api.Services {
	var services api.Services

	// Fraud: hard init. A bad bundle means no fraud routes.
	if bundle, err := artifact.LoadFraudBundle(modelsDir); err != nil {
		slog.Error("fraud service disabled", "error", err)
	} else if svc, err := fraud.NewService(bundle, engine); err != nil {
		slog.Error("fraud service disabled", "error", err)
	} else {
		services.Fraud = svc
		recordArtifact(ctx, repo, &bundle.Record)
		slog.Info("fraud service initialized",
			"features", bundle.Record.FeatureCount,
			"version", bundle.Record.Version,
		)
	}

	// Churn: soft init. The service constructs even from a partial
	// bundle and reports not-ready per request.
	churnBundle, err := artifact.LoadChurnBundle(modelsDir)
	if err != nil {
		slog.Warn("churn artifacts incomplete, service will report not ready", "error", err)
	}
	services.Churn = churn.NewService(churnBundle, slog.Default())
	for i := range churnBundle.Records {
		recordArtifact(ctx, repo, &churnBundle.Records[i])
	}
	slog.Info("churn service initialized", "ready", services.Churn.Ready())

	// Delinquency: lazy init. The artifact loads on the first request.
	lazy := artifact.NewLazyDelinquencyModel(modelsDir)
	services.Delinquency = delinquency.NewService(lazy, slog.Default())
	slog.Info("delinquency service initialized", "loading", "lazy")

	// ATM: hard init.
	if regressor, record, err := artifact.LoadATMModel(modelsDir); err != nil {
		slog.Error("atm withdrawal service disabled", "error", err)
	} else if svc, err := atm.NewService(regressor, slog.Default()); err != nil {
		slog.Error("atm withdrawal service disabled", "error", err)
	} else {
		services.ATM = svc
		recordArtifact(ctx, repo, record)
		slog.Info("atm withdrawal service initialized",
			"features", record.FeatureCount,
			"version", record.Version,
		)
	}

	return services
}

func recordArtifact(ctx context.Context, repo domain.Repository, rec *domain.ArtifactRecord) {
	if repo == nil || rec == nil {
		return
	}
	if err := repo.RecordArtifact(ctx, rec); err != nil {
		slog.Warn("failed to record artifact", "service", rec.Service, "name", rec.Name, "error", err)
	}
}

// loadRules loads risk rules from the database. An empty database is
// seeded with the built-in defaults so decisions carry the standard
// explanatory factors out of the box.
func loadRules(ctx context.Context, repo domain.Repository, engine *rules.Engine, amountThreshold float64) error {
	dbRules, err := repo.ListRiskRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database, using built-in defaults", "error", err)
		return engine.LoadRules(rules.DefaultRules(amountThreshold))
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	defaults := rules.DefaultRules(amountThreshold)
	slog.Info("no rules in database, seeding built-in defaults", "count", len(defaults))
	for _, rule := range defaults {
		if err := repo.SaveRiskRule(ctx, rule); err != nil {
			slog.Warn("failed to seed default rule", "id", rule.ID, "error", err)
		}
	}
	return engine.LoadRules(defaults)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🏦 BANKMIND                  ║")
	fmt.Println("  ║      Banking Prediction Services          ║")
	fmt.Println("  ║    Decisiones con datos, no corazonadas.  ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /fraud/predecir          - Score a card transaction")
	fmt.Println("    GET  /fraud/decisiones/{id}   - Get a recent fraud decision")
	fmt.Println("    POST /fuga/predecir           - Score customer churn risk")
	fmt.Println("    POST /morosidad/predecir      - Score payment default risk")
	fmt.Println("    POST /retiro_atm/predecir     - Forecast ATM withdrawals")
	fmt.Println("    GET  /reglas                  - List risk rules")
	fmt.Println("    POST /reglas                  - Create a risk rule")
	fmt.Println("    POST /reglas/reload           - Hot-reload rules from database")
	fmt.Println("    GET  /vivo                    - Liveness probe")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
