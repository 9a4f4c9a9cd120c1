package models

import "time"

// Feed types recorded by the ingestion pipeline.
const (
	FeedAlert           = "alert"
	FeedTripUpdate      = "trip_update"
	FeedVehiclePosition = "vehicle_position"
)

// RawEvent is one entity extracted from a transit feed. Rows are written
// by the external ingestion service and are read-only here.
type RawEvent struct {
	EventID  int64     `gorm:"column:event_id;primaryKey;autoIncrement" json:"event_id"`
	RunID    string    `gorm:"column:run_id" json:"run_id"`
	FeedType string    `gorm:"column:feed_type" json:"feed_type"`
	EventTS  time.Time `gorm:"column:event_ts;index" json:"event_ts"`
	LineID   *string   `gorm:"column:line_id" json:"line_id"`
	StopID   *string   `gorm:"column:stop_id" json:"stop_id"`
	TripID   *string   `gorm:"column:trip_id" json:"trip_id"`
	Payload  []byte    `gorm:"column:payload;type:jsonb" json:"payload"`
}

func (RawEvent) TableName() string { return "raw_events" }
