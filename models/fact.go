package models

import "time"

// Supported aggregation bucket widths in seconds.
const (
	BucketSize60  = 60
	BucketSize300 = 300
)

// StationMinuteFact is one aggregated row of per-bucket event counts for a
// station key. (bucket_start, bucket_size_seconds, line_id, stop_id) is the
// primary key; rows are only ever merged by upsert, never incremented or
// deleted, so re-aggregation converges to the same state.
type StationMinuteFact struct {
	BucketStart           time.Time `gorm:"column:bucket_start;primaryKey" json:"bucket_start"`
	BucketSizeSeconds     int       `gorm:"column:bucket_size_seconds;primaryKey" json:"bucket_size_seconds"`
	LineID                *string   `gorm:"column:line_id;primaryKey" json:"line_id"`
	StopID                *string   `gorm:"column:stop_id;primaryKey" json:"stop_id"`
	AlertsCount           int       `gorm:"column:alerts_count" json:"alerts_count"`
	MajorAlertsCount      int       `gorm:"column:major_alerts_count" json:"major_alerts_count"`
	TripUpdatesCount      int       `gorm:"column:trip_updates_count" json:"trip_updates_count"`
	VehiclePositionsCount int       `gorm:"column:vehicle_positions_count" json:"vehicle_positions_count"`
}

func (StationMinuteFact) TableName() string { return "station_minute_facts" }

// StationKey returns the (line_id, stop_id) pair with nil mapped to empty,
// usable as a map key.
func (f StationMinuteFact) StationKey() StationKey {
	return StationKey{Line: deref(f.LineID), Stop: deref(f.StopID)}
}

// FeedLevel reports whether the fact has neither line nor stop attached.
func (f StationMinuteFact) FeedLevel() bool {
	return f.LineID == nil && f.StopID == nil
}

// StationKey identifies a monitored transit point.
type StationKey struct {
	Line string
	Stop string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
