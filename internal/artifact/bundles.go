package artifact

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/opensource-finance/bankmind/internal/domain"
	"github.com/opensource-finance/bankmind/internal/model"
)

// FraudBundle is the fraud service's artifact set: a primary
// classifier, a companion anomaly model, a scaler for the numeric
// subset, and one label encoder per categorical column. All parts
// ship in a single bundle file, fitted together.
type FraudBundle struct {
	Classifier domain.Classifier
	Anomaly    domain.AnomalyScorer
	Scaler     domain.Transformer
	Encoders   map[string]*model.LabelEncoder

	Record domain.ArtifactRecord
}

type fraudBundleFile struct {
	Version    string                         `json:"version"`
	Classifier json.RawMessage                `json:"classifier"`
	Anomaly    *model.IsolationForest         `json:"anomaly"`
	Scaler     *model.StandardScaler          `json:"scaler"`
	Encoders   map[string]*model.LabelEncoder `json:"encoders"`
}

// LoadFraudBundle loads and validates the fraud bundle. Any failure
// is fatal for the fraud service: the caller must treat the service
// as unavailable rather than crash the process.
func LoadFraudBundle(dir string) (*FraudBundle, error) {
	path := filepath.Join(dir, FraudBundleFile)
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var file fraudBundleFile
	if err := decode(path, data, &file); err != nil {
		return nil, err
	}

	clf, err := decodeClassifier(path, file.Classifier)
	if err != nil {
		return nil, err
	}
	if file.Anomaly == nil || file.Scaler == nil || len(file.Encoders) == 0 {
		return nil, fmt.Errorf("%w: %s: bundle is missing anomaly model, scaler or encoders", domain.ErrArtifactCorrupt, path)
	}
	if err := file.Anomaly.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, path, err)
	}
	if err := file.Scaler.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, path, err)
	}

	return &FraudBundle{
		Classifier: clf,
		Anomaly:    file.Anomaly,
		Scaler:     file.Scaler,
		Encoders:   file.Encoders,
		Record: domain.ArtifactRecord{
			Service:      "fraud",
			Name:         FraudBundleFile,
			Version:      file.Version,
			FeatureCount: len(clf.FeatureNames()),
			Checksum:     checksum(data),
			LoadedAt:     time.Now().UTC(),
		},
	}, nil
}

// ChurnBundle is the churn service's artifact set, kept as three
// sibling files the way the training pipeline exports them. Loading
// is soft: a partial bundle is returned alongside the first error,
// and the service reports not-ready per request instead of failing
// construction.
type ChurnBundle struct {
	Classifier   domain.Classifier
	Scaler       domain.Transformer
	FeatureNames []string

	Records []domain.ArtifactRecord
}

// Ready reports whether all three artifacts loaded.
func (b *ChurnBundle) Ready() bool {
	return b != nil && b.Classifier != nil && b.Scaler != nil && len(b.FeatureNames) > 0
}

// LoadChurnBundle loads whatever churn artifacts exist. The returned
// bundle may be partial; err carries the first load failure.
func LoadChurnBundle(dir string) (*ChurnBundle, error) {
	bundle := &ChurnBundle{}
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	modelPath := filepath.Join(dir, ChurnModelFile)
	if data, err := readFile(modelPath); err != nil {
		keep(err)
	} else if clf, err := decodeClassifier(modelPath, data); err != nil {
		keep(err)
	} else {
		bundle.Classifier = clf
		bundle.Records = append(bundle.Records, domain.ArtifactRecord{
			Service:      "churn",
			Name:         ChurnModelFile,
			FeatureCount: len(clf.FeatureNames()),
			Checksum:     checksum(data),
			LoadedAt:     time.Now().UTC(),
		})
	}

	scalerPath := filepath.Join(dir, ChurnScalerFile)
	if data, err := readFile(scalerPath); err != nil {
		keep(err)
	} else {
		scaler := &model.StandardScaler{}
		if err := decode(scalerPath, data, scaler); err != nil {
			keep(err)
		} else if err := scaler.Validate(); err != nil {
			keep(fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, scalerPath, err))
		} else {
			bundle.Scaler = scaler
			bundle.Records = append(bundle.Records, domain.ArtifactRecord{
				Service:      "churn",
				Name:         ChurnScalerFile,
				FeatureCount: len(scaler.Columns()),
				Checksum:     checksum(data),
				LoadedAt:     time.Now().UTC(),
			})
		}
	}

	featPath := filepath.Join(dir, ChurnFeatureFile)
	if data, err := readFile(featPath); err != nil {
		keep(err)
	} else {
		var names []string
		if err := decode(featPath, data, &names); err != nil {
			keep(err)
		} else {
			bundle.FeatureNames = names
			bundle.Records = append(bundle.Records, domain.ArtifactRecord{
				Service:      "churn",
				Name:         ChurnFeatureFile,
				FeatureCount: len(names),
				Checksum:     checksum(data),
				LoadedAt:     time.Now().UTC(),
			})
		}
	}

	return bundle, firstErr
}

// delinquencyModelFile is the on-disk shape of the delinquency
// bundle: a classifier whose trained column order ships inside the
// artifact rather than being hand-maintained in code.
type delinquencyModelFile struct {
	Version    string          `json:"version"`
	Classifier json.RawMessage `json:"classifier"`
}

// LoadDelinquencyModel loads the delinquency classifier.
func LoadDelinquencyModel(dir string) (domain.Classifier, *domain.ArtifactRecord, error) {
	path := filepath.Join(dir, DelinquencyModelFile)
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file delinquencyModelFile
	if err := decode(path, data, &file); err != nil {
		return nil, nil, err
	}
	clf, err := decodeClassifier(path, file.Classifier)
	if err != nil {
		return nil, nil, err
	}

	return clf, &domain.ArtifactRecord{
		Service:      "delinquency",
		Name:         DelinquencyModelFile,
		Version:      file.Version,
		FeatureCount: len(clf.FeatureNames()),
		Checksum:     checksum(data),
		LoadedAt:     time.Now().UTC(),
	}, nil
}

// atmModelFile is the on-disk shape of the ATM regressor bundle.
type atmModelFile struct {
	Version   string              `json:"version"`
	Regressor *model.GBTRegressor `json:"regressor"`
}

// LoadATMModel loads the ATM withdrawal regressor. Failure is fatal
// for the ATM service.
func LoadATMModel(dir string) (domain.Regressor, *domain.ArtifactRecord, error) {
	path := filepath.Join(dir, ATMModelFile)
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file atmModelFile
	if err := decode(path, data, &file); err != nil {
		return nil, nil, err
	}
	if file.Regressor == nil {
		return nil, nil, fmt.Errorf("%w: %s: bundle has no regressor", domain.ErrArtifactCorrupt, path)
	}
	if err := file.Regressor.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", domain.ErrArtifactCorrupt, path, err)
	}

	return file.Regressor, &domain.ArtifactRecord{
		Service:      "atm",
		Name:         ATMModelFile,
		Version:      file.Version,
		FeatureCount: len(file.Regressor.Features),
		Checksum:     checksum(data),
		LoadedAt:     time.Now().UTC(),
	}, nil
}
