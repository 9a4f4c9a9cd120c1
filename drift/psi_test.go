package drift

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestPSIIdenticalSamples(t *testing.T) {
	sample := make([]float64, 500)
	rng := rand.New(rand.NewSource(1))
	for i := range sample {
		sample[i] = rng.NormFloat64()
	}

	psi, err := PSI(sample, sample)
	if err != nil {
		t.Fatal(err)
	}
	if psi != 0 {
		t.Errorf("PSI of a sample against itself = %v, want exactly 0", psi)
	}
}

func TestPSISimilarDistributions(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	baseline := make([]float64, 2000)
	recent := make([]float64, 2000)
	for i := range baseline {
		baseline[i] = rng.NormFloat64()
		recent[i] = rng.NormFloat64()
	}

	psi, err := PSI(recent, baseline)
	if err != nil {
		t.Fatal(err)
	}
	if psi >= 0.1 {
		t.Errorf("PSI of two draws from the same distribution = %v, want < 0.1", psi)
	}
}

func TestPSIShiftedDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	baseline := make([]float64, 1000)
	recent := make([]float64, 1000)
	for i := range baseline {
		baseline[i] = rng.NormFloat64()
		recent[i] = rng.NormFloat64() + 3
	}

	psi, err := PSI(recent, baseline)
	if err != nil {
		t.Fatal(err)
	}
	if psi <= 0.25 {
		t.Errorf("PSI of a 3-sigma shift = %v, want > 0.25", psi)
	}
}

func TestPSIConstantBaseline(t *testing.T) {
	baseline := make([]float64, 100)
	recent := make([]float64, 100)
	for i := range recent {
		recent[i] = 10
	}

	// Deciles of an all-zero baseline collapse; the equal-width fallback over
	// the combined range must still see the separation.
	psi, err := PSI(recent, baseline)
	if err != nil {
		t.Fatal(err)
	}
	if psi <= 0.25 {
		t.Errorf("PSI of disjoint constants = %v, want > 0.25", psi)
	}
}

func TestPSIBothConstantEqual(t *testing.T) {
	baseline := []float64{5, 5, 5}
	recent := []float64{5, 5}

	psi, err := PSI(recent, baseline)
	if err != nil {
		t.Fatal(err)
	}
	if psi != 0 {
		t.Errorf("PSI of identical constants = %v, want 0", psi)
	}
}

func TestPSIEmptySample(t *testing.T) {
	if _, err := PSI(nil, []float64{1, 2}); !errors.Is(err, ErrEmptySample) {
		t.Errorf("empty recent: err = %v, want ErrEmptySample", err)
	}
	if _, err := PSI([]float64{1, 2}, nil); !errors.Is(err, ErrEmptySample) {
		t.Errorf("empty baseline: err = %v, want ErrEmptySample", err)
	}
}

func TestPSIFinite(t *testing.T) {
	// Out-of-range recent values land in the widened edge bins, never NaN.
	baseline := make([]float64, 200)
	for i := range baseline {
		baseline[i] = float64(i % 20)
	}
	recent := []float64{-1000, 1000, 5}

	psi, err := PSI(recent, baseline)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(psi) || math.IsInf(psi, 0) {
		t.Errorf("PSI = %v, want finite", psi)
	}
}

func TestBand(t *testing.T) {
	tests := []struct {
		psi  float64
		want string
	}{
		{0, BandStable},
		{0.099, BandStable},
		{0.1, BandModerate},
		{0.25, BandModerate},
		{0.251, BandSignificant},
		{2, BandSignificant},
	}
	for _, tt := range tests {
		if got := Band(tt.psi); got != tt.want {
			t.Errorf("Band(%v) = %q, want %q", tt.psi, got, tt.want)
		}
	}
}
