// Package store is the single Postgres access layer. The aggregator, the
// dataset builder, the drift detector, and the serving feature computer all
// read facts through it, so offline and online feature computation share one
// set of query semantics.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"delay-risk-api/features"
	"delay-risk-api/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ReadEvents returns raw events with event_ts in [from, to), ascending.
func (s *Store) ReadEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	var events []models.RawEvent
	err := s.db.WithContext(ctx).
		Where("event_ts >= ? AND event_ts < ?", from, to).
		Order("event_ts ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("read raw events: %w", err)
	}
	return events, nil
}

// UpsertFacts merges fact rows on the uniqueness key, overwriting counts.
// Each row is an atomic last-writer-wins merge, so overlapping aggregator
// runs converge to the same stored state.
func (s *Store) UpsertFacts(ctx context.Context, facts []models.StationMinuteFact) (int64, error) {
	if len(facts) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "bucket_start"},
			{Name: "bucket_size_seconds"},
			{Name: "line_id"},
			{Name: "stop_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"alerts_count",
			"major_alerts_count",
			"trip_updates_count",
			"vehicle_positions_count",
		}),
	}).Create(&facts)
	if result.Error != nil {
		return 0, fmt.Errorf("upsert facts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Facts60 returns 60-second facts with bucket_start in [from, to), ordered
// by (line_id, stop_id, bucket_start).
func (s *Store) Facts60(ctx context.Context, from, to time.Time) ([]models.StationMinuteFact, error) {
	var facts []models.StationMinuteFact
	err := s.db.WithContext(ctx).
		Where("bucket_size_seconds = ? AND bucket_start >= ? AND bucket_start < ?",
			models.BucketSize60, from, to).
		Order("line_id ASC, stop_id ASC, bucket_start ASC").
		Find(&facts).Error
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	return facts, nil
}

// LatestFact returns the newest 60-second fact for the station, or
// features.ErrNoData when the station has never produced one.
func (s *Store) LatestFact(ctx context.Context, lineID, stopID string) (*models.StationMinuteFact, error) {
	var fact models.StationMinuteFact
	err := s.db.WithContext(ctx).
		Where("bucket_size_seconds = ? AND line_id = ? AND stop_id = ?",
			models.BucketSize60, lineID, stopID).
		Order("bucket_start DESC").
		First(&fact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, features.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read latest fact: %w", err)
	}
	return &fact, nil
}

// StationFacts returns the station's 60-second facts with bucket_start in
// (from, to], ascending. The half-open bounds match the rolling window
// convention in the features package.
func (s *Store) StationFacts(ctx context.Context, lineID, stopID string, from, to time.Time) ([]models.StationMinuteFact, error) {
	var facts []models.StationMinuteFact
	err := s.db.WithContext(ctx).
		Where("bucket_size_seconds = ? AND line_id = ? AND stop_id = ? AND bucket_start > ? AND bucket_start <= ?",
			models.BucketSize60, lineID, stopID, from, to).
		Order("bucket_start ASC").
		Find(&facts).Error
	if err != nil {
		return nil, fmt.Errorf("read station facts: %w", err)
	}
	return facts, nil
}

// AppendDecision writes one row to the append-only retrain decision log.
func (s *Store) AppendDecision(ctx context.Context, decision *models.RetrainDecision) error {
	if err := s.db.WithContext(ctx).Create(decision).Error; err != nil {
		return fmt.Errorf("append retrain decision: %w", err)
	}
	return nil
}
