// Package repository provides configuration persistence.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/bankmind/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRiskRule stores a risk rule configuration. Saving an existing
// (id, version) pair overwrites it.
func (r *SQLRepository) SaveRiskRule(ctx context.Context, rule *domain.RiskRuleConfig) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if rule.Expression == "" {
		return fmt.Errorf("%w: rule expression is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO risk_rules (
			id, name, description, version, expression, points, detail, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			points = excluded.points,
			detail = excluded.detail,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Points, rule.Detail, enabled,
		now, now,
	)
	return err
}

// GetRiskRule retrieves the latest enabled version of a risk rule.
func (r *SQLRepository) GetRiskRule(ctx context.Context, ruleID string) (*domain.RiskRuleConfig, error) {
	query := `
		SELECT id, name, description, version, expression, points, detail, enabled
		FROM risk_rules
		WHERE id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.RiskRuleConfig
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), ruleID).Scan(
		&cfg.ID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Expression, &cfg.Points, &cfg.Detail, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	return &cfg, nil
}

// ListRiskRules retrieves all enabled risk rules ordered by id, the
// same deterministic order the rules engine evaluates them in.
func (r *SQLRepository) ListRiskRules(ctx context.Context) ([]*domain.RiskRuleConfig, error) {
	query := `
		SELECT id, name, description, version, expression, points, detail, enabled
		FROM risk_rules
		WHERE enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RiskRuleConfig
	for rows.Next() {
		var cfg domain.RiskRuleConfig
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Expression, &cfg.Points, &cfg.Detail, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// RecordArtifact registers a loaded model bundle. Re-recording the
// same (service, name, checksum) refreshes the load timestamp.
func (r *SQLRepository) RecordArtifact(ctx context.Context, rec *domain.ArtifactRecord) error {
	if rec.Service == "" || rec.Name == "" {
		return fmt.Errorf("%w: service and name are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO artifact_registry (
			service, name, version, feature_count, checksum, loaded_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(service, name, checksum) DO UPDATE SET
			version = excluded.version,
			feature_count = excluded.feature_count,
			loaded_at = excluded.loaded_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.Service, rec.Name, rec.Version,
		rec.FeatureCount, rec.Checksum, rec.LoadedAt,
	)
	return err
}

// ListArtifacts retrieves all registered model bundles.
func (r *SQLRepository) ListArtifacts(ctx context.Context) ([]*domain.ArtifactRecord, error) {
	query := `
		SELECT service, name, version, feature_count, checksum, loaded_at
		FROM artifact_registry
		ORDER BY service, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ArtifactRecord
	for rows.Next() {
		var rec domain.ArtifactRecord
		if err := rows.Scan(
			&rec.Service, &rec.Name, &rec.Version,
			&rec.FeatureCount, &rec.Checksum, &rec.LoadedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
