package model

import (
	"fmt"
	"math"
)

// IsoNode is one node of an isolation tree. A node is a leaf when
// Feature < 0; Size is the number of training samples that reached
// the leaf, used for the path-length adjustment.
type IsoNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Size      int     `json:"size"`
}

// IsoTree is one isolation tree.
type IsoTree struct {
	Nodes []IsoNode `json:"nodes"`
}

// pathLength returns the isolation depth of a sample, including the
// average-path adjustment for the leaf's training population.
func (t *IsoTree) pathLength(features []float64) (float64, error) {
	idx := 0
	depth := 0.0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("isolation tree node index %d out of range", idx)
		}
		node := t.Nodes[idx]
		if node.Feature < 0 {
			return depth + averagePathLength(node.Size), nil
		}
		if node.Feature >= len(features) {
			return 0, fmt.Errorf("isolation tree references feature %d, vector has %d", node.Feature, len(features))
		}
		depth++
		if features[node.Feature] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("isolation tree walk did not terminate")
}

// IsolationForest is a fitted unsupervised anomaly model. Its
// decision function follows the scikit-learn convention: negative
// values are anomalous, positive values are normal.
type IsolationForest struct {
	Trees      []IsoTree `json:"trees"`
	SampleSize int       `json:"sample_size"`
	Offset     float64   `json:"offset"` // fitted offset, -0.5 for the default contamination
}

// DecisionFunction returns the anomaly score for one sample.
func (f *IsolationForest) DecisionFunction(features []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("isolation forest has no trees")
	}

	total := 0.0
	for i := range f.Trees {
		h, err := f.Trees[i].pathLength(features)
		if err != nil {
			return 0, fmt.Errorf("isolation tree %d: %w", i, err)
		}
		total += h
	}
	mean := total / float64(len(f.Trees))

	norm := averagePathLength(f.SampleSize)
	if norm == 0 {
		norm = 1
	}

	// score_samples = -2^(-E[h]/c(n)); decision = score - offset
	score := -math.Pow(2, -mean/norm)
	return score - f.Offset, nil
}

// Validate checks internal consistency after decoding.
func (f *IsolationForest) Validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("isolation forest has no trees")
	}
	if f.SampleSize <= 0 {
		return fmt.Errorf("isolation forest sample_size must be positive")
	}
	return nil
}

// averagePathLength is c(n), the average path length of an
// unsuccessful BST search over n samples.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	fn := float64(n)
	const euler = 0.5772156649
	return 2*(math.Log(fn-1)+euler) - 2*(fn-1)/fn
}
