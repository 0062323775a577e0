// Package artifact loads the pre-fitted model bundles each prediction
// service owns. Bundles are JSON files produced by the offline
// training pipeline; they are loaded once, validated, and held
// read-only for the process lifetime.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/model"
)

// Bundle file names inside the models directory.
const (
	FraudBundleFile      = "fraud_v1.json"
	ChurnModelFile       = "best_model_churn.json"
	ChurnScalerFile      = "churn_scaler.json"
	ChurnFeatureFile     = "churn_feature_names.json"
	DelinquencyModelFile = "morosidad_model.json"
	ATMModelFile         = "retiro_atm_model.json"
)

// DefaultDir resolves the models directory relative to the running
// executable, not the process working directory, so the services are
// loadable regardless of invocation directory.
func DefaultDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "models"
	}
	return filepath.Join(filepath.Dir(exe), "models")
}

// readFile reads a bundle file, distinguishing a missing artifact
// from any other I/O failure.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return data, nil
}

// decode unmarshals bundle JSON, mapping decode failures onto the
// corrupt-artifact error.
func decode(path string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, path, err)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// classifierSpec dispatches classifier decoding on the "type" field.
type classifierSpec struct {
	Type string `json:"type"`
}

func decodeClassifier(path string, raw json.RawMessage) (domain.Classifier, error) {
	var spec classifierSpec
	if err := decode(path, raw, &spec); err != nil {
		return nil, err
	}

	switch spec.Type {
	case "gbt", "":
		clf := &model.GBTClassifier{}
		if err := decode(path, raw, clf); err != nil {
			return nil, err
		}
		if err := clf.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, path, err)
		}
		return clf, nil
	case "logistic":
		clf := &model.LogisticModel{}
		if err := decode(path, raw, clf); err != nil {
			return nil, err
		}
		if err := clf.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, path, err)
		}
		return clf, nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown classifier type %q", domain.ErrArtifactCorrupt, path, spec.Type)
	}
}
