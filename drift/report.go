package drift

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"delay-risk-api/features"
	"delay-risk-api/models"
)

// Report is one immutable drift snapshot: one PSI value per feature.
type Report struct {
	ComputedAt    time.Time          `json:"computed_at"`
	RecentStart   time.Time          `json:"recent_start"`
	RecentEnd     time.Time          `json:"recent_end"`
	BaselineStart time.Time          `json:"baseline_start"`
	BaselineEnd   time.Time          `json:"baseline_end"`
	PerFeature    map[string]float64 `json:"per_feature"`
}

// FactSource is the slice of the fact store the detector needs.
type FactSource interface {
	// Facts60 returns 60-second facts with bucket_start in [from, to),
	// ordered by (line_id, stop_id, bucket_start).
	Facts60(ctx context.Context, from, to time.Time) ([]models.StationMinuteFact, error)
}

// Detector compares a recent window of fact-derived feature values against
// the non-overlapping baseline window that precedes it.
type Detector struct {
	source     FactSource
	reportsDir string
}

func NewDetector(source FactSource, reportsDir string) *Detector {
	return &Detector{source: source, reportsDir: reportsDir}
}

// Report computes one PSI per named feature. The recent window is
// [asOf-recent, asOf); the baseline window is the `baseline` span ending
// where the recent window begins. An empty window is an error, never a
// silently-zero report.
func (d *Detector) Report(ctx context.Context, asOf time.Time, featureNames []string, recent, baseline time.Duration) (*Report, error) {
	recentStart := asOf.Add(-recent)
	baselineStart := recentStart.Add(-baseline)

	recentValues, err := d.featureValues(ctx, recentStart, asOf, featureNames)
	if err != nil {
		return nil, fmt.Errorf("recent window: %w", err)
	}
	baselineValues, err := d.featureValues(ctx, baselineStart, recentStart, featureNames)
	if err != nil {
		return nil, fmt.Errorf("baseline window: %w", err)
	}

	report := &Report{
		ComputedAt:    asOf,
		RecentStart:   recentStart,
		RecentEnd:     asOf,
		BaselineStart: baselineStart,
		BaselineEnd:   recentStart,
		PerFeature:    make(map[string]float64, len(featureNames)),
	}
	for _, name := range featureNames {
		psi, err := PSI(recentValues[name], baselineValues[name])
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", name, err)
		}
		report.PerFeature[name] = psi
	}
	return report, nil
}

// featureValues derives the named feature columns for every station fact in
// the window, using the same rolling computation as training and serving.
func (d *Detector) featureValues(ctx context.Context, from, to time.Time, names []string) (map[string][]float64, error) {
	facts, err := d.source.Facts60(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}

	values := make(map[string][]float64, len(names))
	for _, station := range features.GroupStations(facts) {
		for i := range station.Facts {
			vec := features.VectorAt(station.Facts, i)
			for _, name := range names {
				values[name] = append(values[name], vec[name])
			}
		}
	}
	return values, nil
}

// WriteSnapshot persists the report as a timestamped JSON file and returns
// its path. One file per invocation; snapshots are never merged.
func (d *Detector) WriteSnapshot(report *Report) (string, error) {
	if err := os.MkdirAll(d.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	name := fmt.Sprintf("drift_report_%s.json", report.ComputedAt.UTC().Format("20060102T150405Z"))
	path := filepath.Join(d.reportsDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
