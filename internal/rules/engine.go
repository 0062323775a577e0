// Package rules provides the CEL-Go based risk-explanation engine.
// Rules fire against the raw (unscaled) derived features of a
// transaction and contribute advisory risk factors to a fraud
// decision. They never alter the model verdict.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/bankmind/internal/domain"
)

// Engine is the CEL-based risk rule engine.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	order    []string // rule IDs in load order, for deterministic factor order
	compiled map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RiskRuleConfig
	Program cel.Program
}

// NewEngine creates a new risk rule engine.
func NewEngine() (*Engine, error) {
	// CEL environment over the fraud service's raw derived features.
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("distance_km", cel.DoubleType),
		cel.Variable("age", cel.IntType),
		cel.Variable("city_pop", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		compiled: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RiskRuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RiskRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	if _, exists := e.compiled[cfg.ID]; !exists {
		e.order = append(e.order, cfg.ID)
	}
	e.compiled[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.RiskRuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules clears all existing rules and loads new ones. This
// enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.RiskRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newOrder := make([]string, 0, len(configs))
	newRules := make(map[string]*CompiledRule, len(configs))

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		if _, exists := newRules[cfg.ID]; !exists {
			newOrder = append(newOrder, cfg.ID)
		}
		newRules[cfg.ID] = compiled
	}

	e.order = newOrder
	e.compiled = newRules

	return nil
}

// Activation holds the raw derived features a rule can reference.
type Activation struct {
	Amount     float64
	Hour       int
	DistanceKM float64
	Age        int
	CityPop    int
}

func (a *Activation) vars() map[string]any {
	return map[string]any{
		"amount":      a.Amount,
		"hour":        int64(a.Hour),
		"distance_km": a.DistanceKM,
		"age":         int64(a.Age),
		"city_pop":    int64(a.CityPop),
	}
}

// Evaluate runs all loaded rules against the activation and returns a
// risk factor for each rule that fires, in load order. A rule that
// errors is skipped with a warning: explanations are advisory and
// must never fail the decision.
func (e *Engine) Evaluate(ctx context.Context, act *Activation) []domain.RiskFactor {
	e.mu.RLock()
	ordered := make([]*CompiledRule, 0, len(e.order))
	for _, id := range e.order {
		if r, ok := e.compiled[id]; ok {
			ordered = append(ordered, r)
		}
	}
	e.mu.RUnlock()

	vars := act.vars()

	var factors []domain.RiskFactor
	for _, rule := range ordered {
		out, _, err := rule.Program.Eval(vars)
		if err != nil {
			slog.Warn("risk rule evaluation failed",
				"rule_id", rule.Config.ID,
				"error", err,
			)
			continue
		}

		fired, ok := out.(types.Bool)
		if !ok || !bool(fired) {
			continue
		}

		factors = append(factors, domain.RiskFactor{
			Factor:      rule.Config.Name,
			Points:      rule.Config.Points,
			Description: formatDetail(rule.Config.Detail, vars),
		})
	}

	return factors
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// GetLoadedRules returns the currently loaded rule configurations in
// load order.
func (e *Engine) GetLoadedRules() []*domain.RiskRuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RiskRuleConfig, 0, len(e.order))
	for _, id := range e.order {
		if compiled, ok := e.compiled[id]; ok {
			rules = append(rules, compiled.Config)
		}
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = nil
	e.compiled = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RiskRuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
