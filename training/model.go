// Package training provides the model-fitting capability behind the
// retraining pipeline: a linear baseline and a gradient-boosted-tree
// variant, both emitting the same JSON artifact the serving path evaluates.
// The orchestrator only sees the Trainer interface and treats the two
// variants uniformly.
package training

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Model is the trained artifact. Exactly one of the variant payloads is set,
// matching Name.
type Model struct {
	Name         string         `json:"name"`
	FeatureNames []string       `json:"feature_names"`
	TrainedAt    time.Time      `json:"trained_at"`
	Logistic     *LogisticModel `json:"logistic,omitempty"`
	GBT          *GBTModel      `json:"gbt,omitempty"`
}

// PredictProba returns the probability of the positive class for one
// feature vector in canonical order.
func (m *Model) PredictProba(x []float64) float64 {
	switch {
	case m.Logistic != nil:
		return m.Logistic.predict(x)
	case m.GBT != nil:
		return m.GBT.predict(x)
	default:
		return 0
	}
}

// Marshal serializes the artifact for the production model slot.
func (m *Model) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalModel parses a stored artifact.
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if m.Logistic == nil && m.GBT == nil {
		return nil, fmt.Errorf("model artifact %q has no variant payload", m.Name)
	}
	return &m, nil
}

// LogisticModel is a standardized-input linear classifier.
type LogisticModel struct {
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (lm *LogisticModel) predict(x []float64) float64 {
	z := lm.Bias
	for i, w := range lm.Weights {
		z += w * (x[i] - lm.Means[i]) / lm.Stds[i]
	}
	return sigmoid(z)
}

// GBTModel is an additive ensemble of regression trees over log-odds.
type GBTModel struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

func (gm *GBTModel) predict(x []float64) float64 {
	score := gm.BaseScore
	for _, tree := range gm.Trees {
		score += gm.LearningRate * tree.eval(x)
	}
	return sigmoid(score)
}

// Tree is one regression tree as a flat node array; index 0 is the root.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
