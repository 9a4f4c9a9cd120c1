package features

import (
	"testing"
	"time"

	"delay-risk-api/models"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) // a Monday

func str(s string) *string { return &s }

func fact(offset time.Duration, alerts, major, trips, vehicles int) models.StationMinuteFact {
	return models.StationMinuteFact{
		BucketStart:           base.Add(offset),
		BucketSizeSeconds:     models.BucketSize60,
		LineID:                str("A"),
		StopID:                str("101"),
		AlertsCount:           alerts,
		MajorAlertsCount:      major,
		TripUpdatesCount:      trips,
		VehiclePositionsCount: vehicles,
	}
}

func TestVectorAtRollingSums(t *testing.T) {
	// One alert per minute for the full hour leading up to the anchor.
	var facts []models.StationMinuteFact
	for i := -59; i <= 0; i++ {
		facts = append(facts, fact(time.Duration(i)*time.Minute, 1, 0, 2, 3))
	}

	v := VectorAt(facts, len(facts)-1)

	if got := v[AlertsSum15m]; got != 15 {
		t.Errorf("alerts_sum_15m = %v, want 15", got)
	}
	if got := v[AlertsSum60m]; got != 60 {
		t.Errorf("alerts_sum_60m = %v, want 60", got)
	}
	if got := v[TripUpdatesSum15m]; got != 30 {
		t.Errorf("trip_updates_sum_15m = %v, want 30", got)
	}
	if got := v[VehiclePositionsSum60m]; got != 180 {
		t.Errorf("vehicle_positions_sum_60m = %v, want 180", got)
	}
	if got := v[AlertsCount]; got != 1 {
		t.Errorf("alerts_count = %v, want 1", got)
	}
}

func TestVectorAtWindowBoundaries(t *testing.T) {
	facts := []models.StationMinuteFact{
		fact(-60*time.Minute, 100, 0, 0, 0), // exactly one long window back, excluded
		fact(-59*time.Minute, 1, 0, 0, 0),   // oldest bucket inside the long window
		fact(-15*time.Minute, 10, 0, 0, 0),  // exactly one short window back, excluded from 15m
		fact(-14*time.Minute, 2, 0, 0, 0),   // oldest bucket inside the short window
		fact(0, 4, 0, 0, 0),
	}

	v := VectorAt(facts, len(facts)-1)

	if got := v[AlertsSum60m]; got != 17 {
		t.Errorf("alerts_sum_60m = %v, want 17 (bucket at t-60m excluded)", got)
	}
	if got := v[AlertsSum15m]; got != 6 {
		t.Errorf("alerts_sum_15m = %v, want 6 (bucket at t-15m excluded)", got)
	}
}

func TestVectorAtZeroFilledGaps(t *testing.T) {
	// Sparse facts: missing buckets contribute nothing, they do not stretch
	// the window.
	facts := []models.StationMinuteFact{
		fact(-50*time.Minute, 5, 0, 0, 0),
		fact(-5*time.Minute, 3, 0, 0, 0),
		fact(0, 1, 0, 0, 0),
	}

	v := VectorAt(facts, len(facts)-1)

	if got := v[AlertsSum15m]; got != 4 {
		t.Errorf("alerts_sum_15m = %v, want 4", got)
	}
	if got := v[AlertsSum60m]; got != 9 {
		t.Errorf("alerts_sum_60m = %v, want 9", got)
	}
}

func TestVectorAtCalendarFeatures(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		hour float64
		day  float64
	}{
		{"monday noon", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), 12, 0},
		{"sunday midnight", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), 0, 6},
		{"friday evening", time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC), 23, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := []models.StationMinuteFact{{
				BucketStart:       tt.ts,
				BucketSizeSeconds: models.BucketSize60,
				LineID:            str("A"),
				StopID:            str("101"),
			}}
			v := VectorAt(facts, 0)
			if v[HourOfDay] != tt.hour {
				t.Errorf("hour_of_day = %v, want %v", v[HourOfDay], tt.hour)
			}
			if v[DayOfWeek] != tt.day {
				t.Errorf("day_of_week = %v, want %v", v[DayOfWeek], tt.day)
			}
		})
	}
}

func TestOrderedMatchesSchema(t *testing.T) {
	v := map[string]float64{}
	for i, name := range Order {
		v[name] = float64(i + 1)
	}
	out := Ordered(v)
	if len(out) != len(Order) {
		t.Fatalf("len = %d, want %d", len(out), len(Order))
	}
	for i := range out {
		if out[i] != float64(i+1) {
			t.Errorf("position %d = %v, want %v", i, out[i], float64(i+1))
		}
	}
}

func TestGroupStations(t *testing.T) {
	feedLevel := models.StationMinuteFact{BucketStart: base, BucketSizeSeconds: models.BucketSize60}
	facts := []models.StationMinuteFact{
		{BucketStart: base.Add(time.Minute), BucketSizeSeconds: 60, LineID: str("B"), StopID: str("202")},
		{BucketStart: base, BucketSizeSeconds: 60, LineID: str("B"), StopID: str("202")},
		{BucketStart: base, BucketSizeSeconds: 60, LineID: str("A"), StopID: str("101")},
		feedLevel,
	}

	stations := GroupStations(facts)

	if len(stations) != 2 {
		t.Fatalf("got %d stations, want 2 (feed-level row dropped)", len(stations))
	}
	if stations[0].Key.Line != "A" || stations[1].Key.Line != "B" {
		t.Errorf("stations not sorted by key: %v, %v", stations[0].Key, stations[1].Key)
	}
	b := stations[1]
	if len(b.Facts) != 2 || b.Facts[0].BucketStart.After(b.Facts[1].BucketStart) {
		t.Errorf("station facts not in ascending bucket order: %+v", b.Facts)
	}
}
