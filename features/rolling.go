package features

import (
	"time"

	"delay-risk-api/models"
)

// Rolling window widths. A window anchored at bucket t covers bucket starts
// in (t-width, t]: inclusive of the current bucket, exclusive of the bucket
// exactly one width back. Buckets with no fact row contribute zero, so the
// sums span wall-clock time rather than however many rows exist.
const (
	ShortWindow = 15 * time.Minute
	LongWindow  = 60 * time.Minute
)

// VectorAt computes the full feature vector anchored at facts[i]. facts must
// contain the 60-second facts of a single station key in ascending bucket
// order; gaps are fine.
func VectorAt(facts []models.StationMinuteFact, i int) map[string]float64 {
	anchor := facts[i]
	t := anchor.BucketStart
	shortCut := t.Add(-ShortWindow)
	longCut := t.Add(-LongWindow)

	var alerts15, alerts60, trips15, trips60, vehicles15, vehicles60 int
	for j := i; j >= 0; j-- {
		bs := facts[j].BucketStart
		if !bs.After(longCut) {
			break
		}
		alerts60 += facts[j].AlertsCount
		trips60 += facts[j].TripUpdatesCount
		vehicles60 += facts[j].VehiclePositionsCount
		if bs.After(shortCut) {
			alerts15 += facts[j].AlertsCount
			trips15 += facts[j].TripUpdatesCount
			vehicles15 += facts[j].VehiclePositionsCount
		}
	}

	utc := t.UTC()
	return map[string]float64{
		AlertsCount:            float64(anchor.AlertsCount),
		MajorAlertsCount:       float64(anchor.MajorAlertsCount),
		TripUpdatesCount:       float64(anchor.TripUpdatesCount),
		VehiclePositionsCount:  float64(anchor.VehiclePositionsCount),
		HourOfDay:              float64(utc.Hour()),
		DayOfWeek:              float64(mondayIndexed(utc.Weekday())),
		AlertsSum15m:           float64(alerts15),
		AlertsSum60m:           float64(alerts60),
		TripUpdatesSum15m:      float64(trips15),
		TripUpdatesSum60m:      float64(trips60),
		VehiclePositionsSum15m: float64(vehicles15),
		VehiclePositionsSum60m: float64(vehicles60),
	}
}

// mondayIndexed maps time.Weekday (Sunday=0) to Monday=0 .. Sunday=6.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
