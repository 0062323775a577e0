package artifact

import (
	"sync"

	"github.com/opensource-finance/bankmind/internal/domain"
)

// LazyClassifier defers loading a classifier bundle until first use
// and caches it for the process lifetime. Repeated calls reuse the
// cached artifact; a load failure is retried on the next call so a
// bundle dropped in after startup becomes usable without a restart.
type LazyClassifier struct {
	mu   sync.Mutex
	dir  string
	load func(dir string) (domain.Classifier, *domain.ArtifactRecord, error)

	clf    domain.Classifier
	record *domain.ArtifactRecord
}

// NewLazyDelinquencyModel returns a lazy accessor for the
// delinquency classifier in dir.
func NewLazyDelinquencyModel(dir string) *LazyClassifier {
	return &LazyClassifier{dir: dir, load: LoadDelinquencyModel}
}

// Get returns the cached classifier, loading it on first use.
// A missing bundle surfaces as domain.ErrArtifactMissing, which the
// boundary layer maps to service-unavailable rather than a generic
// internal error.
func (l *LazyClassifier) Get() (domain.Classifier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.clf != nil {
		return l.clf, nil
	}

	clf, record, err := l.load(l.dir)
	if err != nil {
		return nil, err
	}
	l.clf = clf
	l.record = record
	return clf, nil
}

// Record returns the artifact record if the classifier has loaded.
func (l *LazyClassifier) Record() *domain.ArtifactRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record
}
