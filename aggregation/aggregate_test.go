package aggregation

import (
	"reflect"
	"testing"
	"time"

	"delay-risk-api/models"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func event(offset time.Duration, feedType string, line, stop *string, payload string) models.RawEvent {
	return models.RawEvent{
		FeedType: feedType,
		EventTS:  base.Add(offset),
		LineID:   line,
		StopID:   stop,
		Payload:  []byte(payload),
	}
}

func str(s string) *string { return &s }

func factByKey(facts []models.StationMinuteFact, bucket time.Time, size int, line, stop string) *models.StationMinuteFact {
	for i := range facts {
		f := facts[i]
		key := f.StationKey()
		if f.BucketStart.Equal(bucket) && f.BucketSizeSeconds == size && key.Line == line && key.Stop == stop {
			return &facts[i]
		}
	}
	return nil
}

func TestAggregateCounts(t *testing.T) {
	events := []models.RawEvent{
		event(10*time.Second, models.FeedAlert, str("A"), str("101"), `{"severity":"minor"}`),
		event(20*time.Second, models.FeedAlert, str("A"), str("101"), `{"severity":"major"}`),
		event(30*time.Second, models.FeedTripUpdate, str("A"), str("101"), `{}`),
		event(40*time.Second, models.FeedTripUpdate, str("A"), str("101"), `{}`),
		event(50*time.Second, models.FeedVehiclePosition, str("A"), str("101"), `{}`),
	}

	facts := Aggregate(events, base, base.Add(2*time.Minute), models.BucketSize60)

	fact := factByKey(facts, base, models.BucketSize60, "A", "101")
	if fact == nil {
		t.Fatal("expected fact for station A/101")
	}
	if fact.AlertsCount != 2 {
		t.Errorf("AlertsCount = %d, want 2", fact.AlertsCount)
	}
	if fact.MajorAlertsCount != 1 {
		t.Errorf("MajorAlertsCount = %d, want 1", fact.MajorAlertsCount)
	}
	if fact.TripUpdatesCount != 2 {
		t.Errorf("TripUpdatesCount = %d, want 2", fact.TripUpdatesCount)
	}
	if fact.VehiclePositionsCount != 1 {
		t.Errorf("VehiclePositionsCount = %d, want 1", fact.VehiclePositionsCount)
	}
}

func TestAggregateSubCountInvariant(t *testing.T) {
	payloads := []string{`{"severity":"major"}`, `{"severity":"MAJOR"}`, `{"severity":"severe"}`, `{"severity":"low"}`, `{}`, `not json`}
	var events []models.RawEvent
	for i, p := range payloads {
		events = append(events, event(time.Duration(i)*time.Second, models.FeedAlert, str("B"), str("202"), p))
	}

	facts := Aggregate(events, base, base.Add(time.Minute), models.BucketSize60)
	for _, f := range facts {
		if f.MajorAlertsCount > f.AlertsCount {
			t.Errorf("major_alerts_count %d exceeds alerts_count %d", f.MajorAlertsCount, f.AlertsCount)
		}
	}
	fact := factByKey(facts, base, models.BucketSize60, "B", "202")
	if fact == nil {
		t.Fatal("expected fact for station B/202")
	}
	if fact.AlertsCount != 6 {
		t.Errorf("AlertsCount = %d, want 6", fact.AlertsCount)
	}
	if fact.MajorAlertsCount != 3 {
		t.Errorf("MajorAlertsCount = %d, want 3", fact.MajorAlertsCount)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	events := []models.RawEvent{
		event(5*time.Second, models.FeedAlert, str("A"), str("101"), `{}`),
		event(65*time.Second, models.FeedTripUpdate, str("A"), str("101"), `{}`),
		event(70*time.Second, models.FeedVehiclePosition, nil, nil, `{}`),
	}
	from, to := base, base.Add(5*time.Minute)

	first := Aggregate(events, from, to, BucketSizes...)
	second := Aggregate(events, from, to, BucketSizes...)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated aggregation differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAggregateRangeSplitEquivalence(t *testing.T) {
	var events []models.RawEvent
	for i := 0; i < 10; i++ {
		events = append(events, event(time.Duration(i)*time.Minute+7*time.Second,
			models.FeedTripUpdate, str("C"), str("303"), `{}`))
	}
	t0 := base
	t1 := base.Add(5 * time.Minute)
	t2 := base.Add(10 * time.Minute)

	whole := Aggregate(events, t0, t2, models.BucketSize60)

	// Two half-range runs, later run overwriting on the shared key.
	merged := make(map[string]models.StationMinuteFact)
	for _, f := range Aggregate(eventsIn(events, t0, t1), t0, t1, models.BucketSize60) {
		merged[mergeKey(f)] = f
	}
	for _, f := range Aggregate(eventsIn(events, t1, t2), t1, t2, models.BucketSize60) {
		merged[mergeKey(f)] = f
	}

	if len(merged) != len(whole) {
		t.Fatalf("split aggregation produced %d facts, whole range produced %d", len(merged), len(whole))
	}
	for _, f := range whole {
		got, ok := merged[mergeKey(f)]
		if !ok {
			t.Fatalf("missing fact for bucket %v", f.BucketStart)
		}
		if !reflect.DeepEqual(got, f) {
			t.Errorf("bucket %v: split=%+v whole=%+v", f.BucketStart, got, f)
		}
	}
}

func eventsIn(events []models.RawEvent, from, to time.Time) []models.RawEvent {
	var out []models.RawEvent
	for _, ev := range events {
		if !ev.EventTS.Before(from) && ev.EventTS.Before(to) {
			out = append(out, ev)
		}
	}
	return out
}

func mergeKey(f models.StationMinuteFact) string {
	key := f.StationKey()
	return f.BucketStart.Format(time.RFC3339) + "|" + key.Line + "|" + key.Stop
}

func TestAggregateExcludesBoundaryBuckets(t *testing.T) {
	events := []models.RawEvent{
		event(10*time.Second, models.FeedAlert, str("A"), str("101"), `{}`),  // head bucket, partially covered
		event(70*time.Second, models.FeedAlert, str("A"), str("101"), `{}`),  // fully covered
		event(130*time.Second, models.FeedAlert, str("A"), str("101"), `{}`), // tail bucket, partially covered
	}

	// Range starts and ends mid-bucket.
	facts := Aggregate(events, base.Add(30*time.Second), base.Add(150*time.Second), models.BucketSize60)

	if len(facts) != 1 {
		t.Fatalf("got %d facts, want only the fully covered bucket", len(facts))
	}
	if !facts[0].BucketStart.Equal(base.Add(time.Minute)) {
		t.Errorf("BucketStart = %v, want %v", facts[0].BucketStart, base.Add(time.Minute))
	}
}

func TestAggregateNullStationKey(t *testing.T) {
	events := []models.RawEvent{
		event(10*time.Second, models.FeedAlert, nil, nil, `{}`),
		event(20*time.Second, models.FeedAlert, nil, nil, `{}`),
	}

	facts := Aggregate(events, base, base.Add(time.Minute), models.BucketSize60)
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	if !facts[0].FeedLevel() {
		t.Error("expected a feed-level fact with null station key")
	}
	if facts[0].AlertsCount != 2 {
		t.Errorf("AlertsCount = %d, want 2", facts[0].AlertsCount)
	}
}

func TestAggregateIndependentGranularities(t *testing.T) {
	var events []models.RawEvent
	for i := 0; i < 5; i++ {
		events = append(events, event(time.Duration(i)*time.Minute+time.Second,
			models.FeedVehiclePosition, str("D"), str("404"), `{}`))
	}

	facts := Aggregate(events, base, base.Add(5*time.Minute), BucketSizes...)

	var minuteFacts, fiveMinuteFacts int
	for _, f := range facts {
		switch f.BucketSizeSeconds {
		case models.BucketSize60:
			minuteFacts++
			if f.VehiclePositionsCount != 1 {
				t.Errorf("60s bucket %v count = %d, want 1", f.BucketStart, f.VehiclePositionsCount)
			}
		case models.BucketSize300:
			fiveMinuteFacts++
			if f.VehiclePositionsCount != 5 {
				t.Errorf("300s bucket %v count = %d, want 5", f.BucketStart, f.VehiclePositionsCount)
			}
		}
	}
	if minuteFacts != 5 {
		t.Errorf("got %d 60s facts, want 5", minuteFacts)
	}
	if fiveMinuteFacts != 1 {
		t.Errorf("got %d 300s facts, want 1", fiveMinuteFacts)
	}
}
