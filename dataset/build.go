// Package dataset builds the supervised training dataset from 60-second
// station facts: rolling-window features, forward-looking labels, and a
// strict time-ordered train/val/test split.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"delay-risk-api/features"
	"delay-risk-api/models"
)

// LabelHorizon is the forward window for the label: a row at bucket t is
// positive when its station records any alert in (t, t+LabelHorizon].
const LabelHorizon = 15 * time.Minute

// ErrNoFacts means the requested training horizon holds no usable facts.
var ErrNoFacts = errors.New("no facts in training window")

// Row is one labeled example. Immutable once built.
type Row struct {
	LineID      *string            `json:"line_id"`
	StopID      *string            `json:"stop_id"`
	BucketStart time.Time          `json:"bucket_start"`
	Features    map[string]float64 `json:"features"`
	Label       int                `json:"label"`
}

// Dataset is the time-split output of a build.
type Dataset struct {
	Train []Row
	Val   []Row
	Test  []Row
}

// SplitStats summarizes one split for class-balance sanity checks.
type SplitStats struct {
	Rows         int     `json:"rows"`
	PositiveRate float64 `json:"positive_rate"`
}

// Stats reports per-split row counts and positive-label rates.
func (d *Dataset) Stats() map[string]SplitStats {
	return map[string]SplitStats{
		"train": splitStats(d.Train),
		"val":   splitStats(d.Val),
		"test":  splitStats(d.Test),
	}
}

func splitStats(rows []Row) SplitStats {
	s := SplitStats{Rows: len(rows)}
	if len(rows) == 0 {
		return s
	}
	positives := 0
	for _, r := range rows {
		positives += r.Label
	}
	s.PositiveRate = float64(positives) / float64(len(rows))
	return s
}

// FactSource is the slice of the fact store the builder needs.
type FactSource interface {
	// Facts60 returns 60-second facts with bucket_start in [from, to),
	// ordered by (line_id, stop_id, bucket_start).
	Facts60(ctx context.Context, from, to time.Time) ([]models.StationMinuteFact, error)
}

// Builder loads facts over a training horizon and assembles the dataset.
type Builder struct {
	source FactSource
}

func NewBuilder(source FactSource) *Builder {
	return &Builder{source: source}
}

// Build assembles the dataset over the windowMinutes ending at asOf.
func (b *Builder) Build(ctx context.Context, asOf time.Time, windowMinutes int) (*Dataset, error) {
	windowEnd := asOf
	windowStart := asOf.Add(-time.Duration(windowMinutes) * time.Minute)

	facts, err := b.source.Facts60(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}

	return BuildFromFacts(facts, windowEnd)
}

// BuildFromFacts derives features and labels from already-loaded facts. The
// facts must all have bucket_start before windowEnd; rows whose label
// lookahead is not fully covered by windowEnd are dropped, never defaulted
// to negative.
func BuildFromFacts(facts []models.StationMinuteFact, windowEnd time.Time) (*Dataset, error) {
	var rows []Row
	for _, station := range features.GroupStations(facts) {
		for i, fact := range station.Facts {
			horizonEnd := fact.BucketStart.Add(LabelHorizon)
			if !horizonEnd.Before(windowEnd) {
				// Lookahead runs past the loaded data; unlabelable.
				continue
			}

			label := 0
			for j := i + 1; j < len(station.Facts); j++ {
				bs := station.Facts[j].BucketStart
				if bs.After(horizonEnd) {
					break
				}
				if station.Facts[j].AlertsCount > 0 {
					label = 1
					break
				}
			}

			rows = append(rows, Row{
				LineID:      fact.LineID,
				StopID:      fact.StopID,
				BucketStart: fact.BucketStart,
				Features:    features.VectorAt(station.Facts, i),
				Label:       label,
			})
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoFacts
	}

	return timeSplit(rows), nil
}

// timeSplit orders rows by bucket start and partitions them 70/15/15 by
// position. Never shuffled: everything in train precedes everything in test.
func timeSplit(rows []Row) *Dataset {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].BucketStart.Before(rows[j].BucketStart)
	})

	trainEnd := int(float64(len(rows)) * 0.70)
	valEnd := int(float64(len(rows)) * 0.85)

	return &Dataset{
		Train: rows[:trainEnd],
		Val:   rows[trainEnd:valEnd],
		Test:  rows[valEnd:],
	}
}
