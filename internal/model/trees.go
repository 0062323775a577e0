package model

import (
	"fmt"
	"math"
)

// TreeNode is one node of a regression tree in array form. A node is
// a leaf when Feature < 0, in which case Value is the leaf margin.
// Split rule: feature < threshold goes left, otherwise right.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is one regression tree.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Eval walks the tree for one feature vector and returns the leaf
// margin.
func (t *Tree) Eval(features []float64) (float64, error) {
	idx := 0
	// A well-formed tree terminates in at most len(Nodes) steps.
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("tree node index %d out of range", idx)
		}
		node := t.Nodes[idx]
		if node.Feature < 0 {
			return node.Value, nil
		}
		if node.Feature >= len(features) {
			return 0, fmt.Errorf("tree references feature %d, vector has %d", node.Feature, len(features))
		}
		if features[node.Feature] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("tree walk did not terminate")
}

// TreeEnsemble is a fitted gradient-boosted ensemble: the prediction
// margin is the base score plus the sum of all tree leaf values.
type TreeEnsemble struct {
	Features  []string `json:"feature_names"`
	Trees     []Tree   `json:"trees"`
	BaseScore float64  `json:"base_score"`
}

// Margin returns the raw (untransformed) ensemble output.
func (m *TreeEnsemble) Margin(features []float64) (float64, error) {
	if len(features) != len(m.Features) {
		return 0, fmt.Errorf("ensemble expects %d features, got %d", len(m.Features), len(features))
	}
	sum := m.BaseScore
	for i := range m.Trees {
		v, err := m.Trees[i].Eval(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return sum, nil
}

// Validate checks internal consistency after decoding.
func (m *TreeEnsemble) Validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("ensemble has no feature names")
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	return nil
}

// GBTClassifier is a binary classifier over a boosted ensemble. The
// positive-class probability is the sigmoid of the margin.
type GBTClassifier struct {
	TreeEnsemble
}

// FeatureNames returns the exact ordered column list the classifier
// was trained with.
func (c *GBTClassifier) FeatureNames() []string {
	return c.Features
}

// PredictProba returns the positive-class probability.
func (c *GBTClassifier) PredictProba(features []float64) (float64, error) {
	margin, err := c.Margin(features)
	if err != nil {
		return 0, err
	}
	return sigmoid(margin), nil
}

// GBTRegressor is a regression model over a boosted ensemble.
type GBTRegressor struct {
	TreeEnsemble
}

// FeatureNames returns the exact ordered column list the regressor
// was trained with.
func (r *GBTRegressor) FeatureNames() []string {
	return r.Features
}

// Predict returns the raw regression output. Any target transform
// (e.g. log1p) is the caller's contract, not the model's.
func (r *GBTRegressor) Predict(features []float64) (float64, error) {
	return r.Margin(features)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
