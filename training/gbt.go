package training

import (
	"fmt"
	"math"
	"sort"
	"time"

	"delay-risk-api/dataset"
	"delay-risk-api/features"
)

// GBTTrainer fits gradient-boosted shallow regression trees on the logistic
// loss, with early stopping on validation loss when a validation split is
// available.
type GBTTrainer struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
	// EarlyStop is the number of rounds without validation improvement
	// before training halts and the ensemble is truncated to its best round.
	EarlyStop int
	// Lambda is the L2 regularization on leaf values.
	Lambda float64
}

func NewGBTTrainer() *GBTTrainer {
	return &GBTTrainer{
		Rounds:       500,
		LearningRate: 0.05,
		MaxDepth:     3,
		MinLeaf:      20,
		EarlyStop:    50,
		Lambda:       1.0,
	}
}

func (t *GBTTrainer) Name() string { return TrainerGBT }

func (t *GBTTrainer) Fit(train, val []dataset.Row) (*Model, error) {
	if len(train) == 0 {
		return nil, fmt.Errorf("gbt: empty training split")
	}
	X, y := matrix(train)
	neg, pos := countClasses(y)
	if neg == 0 || pos == 0 {
		return nil, fmt.Errorf("gbt: %w", ErrSingleClass)
	}

	prior := float64(pos) / float64(len(y))
	base := math.Log(prior / (1 - prior))

	valX, valY := matrix(val)

	scores := make([]float64, len(y))
	for i := range scores {
		scores[i] = base
	}
	valScores := make([]float64, len(valY))
	for i := range valScores {
		valScores[i] = base
	}

	gbt := &GBTModel{BaseScore: base, LearningRate: t.LearningRate}
	bestLoss := math.Inf(1)
	bestRound := 0

	grads := make([]float64, len(y))
	hess := make([]float64, len(y))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	for round := 0; round < t.Rounds; round++ {
		for i, s := range scores {
			p := sigmoid(s)
			grads[i] = y[i] - p
			hess[i] = p * (1 - p)
		}

		tree := &Tree{}
		t.buildNode(tree, X, grads, hess, idx, 0)
		gbt.Trees = append(gbt.Trees, *tree)

		for i := range scores {
			scores[i] += t.LearningRate * tree.eval(X[i])
		}

		if len(valY) == 0 {
			bestRound = round + 1
			continue
		}

		for i := range valScores {
			valScores[i] += t.LearningRate * tree.eval(valX[i])
		}
		loss := logLoss(valScores, valY)
		if loss < bestLoss {
			bestLoss = loss
			bestRound = round + 1
		} else if round+1-bestRound >= t.EarlyStop {
			break
		}
	}

	gbt.Trees = gbt.Trees[:bestRound]

	return &Model{
		Name:         TrainerGBT,
		FeatureNames: append([]string(nil), features.Order...),
		TrainedAt:    time.Now().UTC(),
		GBT:          gbt,
	}, nil
}

// buildNode grows the tree rooted at the next free node index for the given
// sample subset, returning the node's index.
func (t *GBTTrainer) buildNode(tree *Tree, X [][]float64, grads, hess []float64, idx []int, depth int) int {
	var gSum, hSum float64
	for _, i := range idx {
		gSum += grads[i]
		hSum += hess[i]
	}

	nodeIdx := len(tree.Nodes)
	if depth >= t.MaxDepth || len(idx) < 2*t.MinLeaf {
		tree.Nodes = append(tree.Nodes, TreeNode{Leaf: true, Value: gSum / (hSum + t.Lambda)})
		return nodeIdx
	}

	feature, threshold, gain := t.bestSplit(X, grads, hess, idx, gSum, hSum)
	if gain <= 0 {
		tree.Nodes = append(tree.Nodes, TreeNode{Leaf: true, Value: gSum / (hSum + t.Lambda)})
		return nodeIdx
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	tree.Nodes = append(tree.Nodes, TreeNode{Feature: feature, Threshold: threshold})
	leftIdx := t.buildNode(tree, X, grads, hess, left, depth+1)
	rightIdx := t.buildNode(tree, X, grads, hess, right, depth+1)
	tree.Nodes[nodeIdx].Left = leftIdx
	tree.Nodes[nodeIdx].Right = rightIdx
	return nodeIdx
}

// bestSplit scans every feature's distinct values for the split maximizing
// the regularized gain.
func (t *GBTTrainer) bestSplit(X [][]float64, grads, hess []float64, idx []int, gSum, hSum float64) (int, float64, float64) {
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	parentScore := gSum * gSum / (hSum + t.Lambda)

	type sample struct {
		v, g, h float64
	}
	samples := make([]sample, len(idx))

	for f := 0; f < len(X[idx[0]]); f++ {
		for k, i := range idx {
			samples[k] = sample{v: X[i][f], g: grads[i], h: hess[i]}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].v < samples[b].v })

		var gLeft, hLeft float64
		for k := 0; k < len(samples)-1; k++ {
			gLeft += samples[k].g
			hLeft += samples[k].h
			if samples[k].v == samples[k+1].v {
				continue
			}
			if k+1 < t.MinLeaf || len(samples)-k-1 < t.MinLeaf {
				continue
			}
			gRight := gSum - gLeft
			hRight := hSum - hLeft
			gain := gLeft*gLeft/(hLeft+t.Lambda) + gRight*gRight/(hRight+t.Lambda) - parentScore
			if gain > bestGain {
				bestFeature = f
				bestThreshold = (samples[k].v + samples[k+1].v) / 2
				bestGain = gain
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func logLoss(scores, y []float64) float64 {
	const eps = 1e-12
	loss := 0.0
	for i, s := range scores {
		p := math.Min(math.Max(sigmoid(s), eps), 1-eps)
		if y[i] > 0.5 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(len(y))
}
