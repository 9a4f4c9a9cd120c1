// Package drift quantifies distributional drift of model features between
// two time windows using the Population Stability Index.
package drift

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	psiBins = 10
	epsilon = 1e-6
)

// Advisory interpretation bands. Not enforced anywhere; callers decide.
const (
	BandStable      = "stable"      // PSI < 0.1
	BandModerate    = "moderate"    // 0.1 <= PSI <= 0.25
	BandSignificant = "significant" // PSI > 0.25
)

// ErrEmptySample means one of the two windows produced no values.
var ErrEmptySample = errors.New("empty sample for PSI")

// PSI computes the Population Stability Index of recent against baseline.
// Bin edges are the deciles of the baseline distribution, widened to +-Inf
// at the extremes so out-of-range recent values still land in a bin. When
// the baseline is near-constant the deciles collapse, and equal-width bins
// over the combined range are used instead. Empty bins are floored at a
// small epsilon so no bin divides by zero or takes ln(0).
func PSI(recent, baseline []float64) (float64, error) {
	if len(recent) == 0 || len(baseline) == 0 {
		return 0, ErrEmptySample
	}

	edges := decileEdges(baseline)
	if len(edges) < 3 {
		edges = equalWidthEdges(recent, baseline)
		if edges == nil {
			// Both samples are the same constant.
			return 0, nil
		}
	} else {
		edges[0] = math.Inf(-1)
		edges[len(edges)-1] = math.Inf(1)
	}

	recentPct := binPercentages(recent, edges)
	baselinePct := binPercentages(baseline, edges)

	psi := 0.0
	for i := range recentPct {
		psi += (recentPct[i] - baselinePct[i]) * math.Log(recentPct[i]/baselinePct[i])
	}
	return psi, nil
}

// Band maps a PSI value to its advisory interpretation band.
func Band(psi float64) string {
	switch {
	case psi < 0.1:
		return BandStable
	case psi <= 0.25:
		return BandModerate
	default:
		return BandSignificant
	}
}

// decileEdges returns the deduplicated decile edges of the sample.
func decileEdges(sample []float64) []float64 {
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, psiBins+1)
	for i := 0; i <= psiBins; i++ {
		q := stat.Quantile(float64(i)/psiBins, stat.Empirical, sorted, nil)
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// equalWidthEdges spans the combined range of both samples so that a
// constant baseline still separates from a recent sample elsewhere on the
// axis. Returns nil when the combined range is a single point.
func equalWidthEdges(recent, baseline []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range [][]float64{recent, baseline} {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		return nil
	}

	edges := make([]float64, psiBins+1)
	width := (hi - lo) / psiBins
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[psiBins] = hi
	return edges
}

// binPercentages histograms the sample into the bins described by edges and
// returns epsilon-floored, renormalized bin fractions.
func binPercentages(sample []float64, edges []float64) []float64 {
	bins := len(edges) - 1
	counts := make([]float64, bins)
	for _, v := range sample {
		idx := sort.SearchFloat64s(edges[1:], v)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	total := float64(len(sample))
	sum := 0.0
	pct := make([]float64, bins)
	for i, c := range counts {
		pct[i] = c/total + epsilon
		sum += pct[i]
	}
	for i := range pct {
		pct[i] /= sum
	}
	return pct
}
