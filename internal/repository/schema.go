package repository

// Schema definitions for BankMind configuration storage.
// Compatible with both SQLite and PostgreSQL.

const schemaRiskRules = `
CREATE TABLE IF NOT EXISTS risk_rules (
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    points TEXT NOT NULL,
    detail TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_risk_rules_enabled ON risk_rules(enabled);
`

// schemaArtifactRegistry records which model bundles this process
// loaded, with checksums for provenance. Predictions are never
// persisted; this table holds only load metadata.
const schemaArtifactRegistry = `
CREATE TABLE IF NOT EXISTS artifact_registry (
    service TEXT NOT NULL,
    name TEXT NOT NULL,
    version TEXT,
    feature_count INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    loaded_at TIMESTAMP NOT NULL,
    PRIMARY KEY (service, name, checksum)
);

CREATE INDEX IF NOT EXISTS idx_artifact_registry_service ON artifact_registry(service);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRiskRules,
		schemaArtifactRegistry,
	}
}
