package training

import (
	"fmt"
	"time"

	"delay-risk-api/dataset"
	"delay-risk-api/features"

	"gonum.org/v1/gonum/stat"
)

// LogisticTrainer is the linear baseline: full-batch gradient descent on
// standardized features with class-balanced sample weights.
type LogisticTrainer struct {
	Epochs       int
	LearningRate float64
}

func NewLogisticTrainer() *LogisticTrainer {
	return &LogisticTrainer{Epochs: 200, LearningRate: 0.1}
}

func (t *LogisticTrainer) Name() string { return TrainerLogistic }

func (t *LogisticTrainer) Fit(train, _ []dataset.Row) (*Model, error) {
	if len(train) == 0 {
		return nil, fmt.Errorf("logistic: empty training split")
	}
	X, y := matrix(train)
	neg, pos := countClasses(y)
	if neg == 0 || pos == 0 {
		return nil, fmt.Errorf("logistic: %w", ErrSingleClass)
	}

	n := len(X)
	dims := len(X[0])

	means := make([]float64, dims)
	stds := make([]float64, dims)
	col := make([]float64, n)
	for j := 0; j < dims; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		means[j] = stat.Mean(col, nil)
		stds[j] = stat.StdDev(col, nil)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	Z := make([][]float64, n)
	for i := range X {
		Z[i] = make([]float64, dims)
		for j := range X[i] {
			Z[i][j] = (X[i][j] - means[j]) / stds[j]
		}
	}

	// Balanced class weights, as the baseline has always been trained.
	wPos := float64(n) / (2 * float64(pos))
	wNeg := float64(n) / (2 * float64(neg))

	weights := make([]float64, dims)
	bias := 0.0
	grad := make([]float64, dims)
	for epoch := 0; epoch < t.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		for i := range Z {
			z := bias
			for j, w := range weights {
				z += w * Z[i][j]
			}
			sw := wNeg
			if y[i] > 0.5 {
				sw = wPos
			}
			err := sw * (sigmoid(z) - y[i])
			for j := range grad {
				grad[j] += err * Z[i][j]
			}
			gradBias += err
		}
		step := t.LearningRate / float64(n)
		for j := range weights {
			weights[j] -= step * grad[j]
		}
		bias -= step * gradBias
	}

	return &Model{
		Name:         TrainerLogistic,
		FeatureNames: append([]string(nil), features.Order...),
		TrainedAt:    time.Now().UTC(),
		Logistic: &LogisticModel{
			Means:   means,
			Stds:    stds,
			Weights: weights,
			Bias:    bias,
		},
	}, nil
}
