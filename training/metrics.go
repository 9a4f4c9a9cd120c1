package training

import (
	"sort"

	"delay-risk-api/dataset"
)

// Metrics are the held-out classification metrics stored alongside the
// artifact. F1 is the promotion-gate metric.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// Evaluate scores the model on a split at the 0.5 decision threshold.
func Evaluate(m *Model, rows []dataset.Row) Metrics {
	X, y := matrix(rows)
	scores := make([]float64, len(X))
	for i, x := range X {
		scores[i] = m.PredictProba(x)
	}
	return Score(scores, y)
}

// Score computes metrics from predicted probabilities and true labels.
// Degenerate denominators score zero rather than NaN.
func Score(scores, y []float64) Metrics {
	var tp, fp, tn, fn float64
	for i, s := range scores {
		predicted := s > 0.5
		actual := y[i] > 0.5
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && !actual:
			tn++
		default:
			fn++
		}
	}

	total := tp + fp + tn + fn
	var m Metrics
	if total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.ROCAUC = rocAUC(scores, y)
	return m
}

// rocAUC is the Mann-Whitney rank statistic with average ranks for tied
// scores. Returns 0 when only one class is present.
func rocAUC(scores, y []float64) float64 {
	n := len(scores)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[order[j]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var pos, rankSum float64
	for i, label := range y {
		if label > 0.5 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}
