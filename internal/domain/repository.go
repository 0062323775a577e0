package domain

import (
	"context"
	"time"
)

// Repository defines the interface for configuration persistence.
// BankMind persists risk-rule configs and an artifact registry.
// Predictions themselves are never persisted.
type Repository interface {
	// Risk rule configuration operations
	SaveRiskRule(ctx context.Context, rule *RiskRuleConfig) error
	GetRiskRule(ctx context.Context, ruleID string) (*RiskRuleConfig, error)
	ListRiskRules(ctx context.Context) ([]*RiskRuleConfig, error)

	// Artifact registry: which model bundles this process loaded.
	RecordArtifact(ctx context.Context, rec *ArtifactRecord) error
	ListArtifacts(ctx context.Context) ([]*ArtifactRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ArtifactRecord describes one loaded model bundle.
type ArtifactRecord struct {
	Service      string    `json:"service"` // fraud, churn, delinquency, atm
	Name         string    `json:"name"`    // bundle file name
	Version      string    `json:"version"`
	FeatureCount int       `json:"featureCount"`
	Checksum     string    `json:"checksum"` // sha256 of the bundle file
	LoadedAt     time.Time `json:"loadedAt"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
