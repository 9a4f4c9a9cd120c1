package dataset

import (
	"testing"
	"time"

	"delay-risk-api/models"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func str(s string) *string { return &s }

func fact(offset time.Duration, alerts int) models.StationMinuteFact {
	return models.StationMinuteFact{
		BucketStart:       base.Add(offset),
		BucketSizeSeconds: models.BucketSize60,
		LineID:            str("A"),
		StopID:            str("101"),
		AlertsCount:       alerts,
	}
}

func allRows(d *Dataset) []Row {
	rows := append([]Row{}, d.Train...)
	rows = append(rows, d.Val...)
	return append(rows, d.Test...)
}

func rowAt(rows []Row, ts time.Time) *Row {
	for i := range rows {
		if rows[i].BucketStart.Equal(ts) {
			return &rows[i]
		}
	}
	return nil
}

func TestLabelFromForwardWindow(t *testing.T) {
	// Alert at t+10m makes the row at t positive. The row at the alert's own
	// bucket stays negative: the label window opens after the bucket itself.
	var facts []models.StationMinuteFact
	for i := 0; i < 60; i++ {
		alerts := 0
		if i == 10 {
			alerts = 5
		}
		facts = append(facts, fact(time.Duration(i)*time.Minute, alerts))
	}
	windowEnd := base.Add(60 * time.Minute)

	ds, err := BuildFromFacts(facts, windowEnd)
	if err != nil {
		t.Fatal(err)
	}
	rows := allRows(ds)

	if r := rowAt(rows, base); r == nil || r.Label != 1 {
		t.Errorf("row at t=0 should be positive (alert at t+10m inside horizon)")
	}
	if r := rowAt(rows, base.Add(10*time.Minute)); r == nil || r.Label != 0 {
		t.Errorf("row at the alert's own bucket should be negative")
	}
	if r := rowAt(rows, base.Add(11*time.Minute)); r == nil || r.Label != 0 {
		t.Errorf("row just after the alert should be negative")
	}
}

func TestLabelHorizonIsInclusive(t *testing.T) {
	// Alert exactly at t+15m: inside (t, t+15m], so the row at t is positive.
	facts := []models.StationMinuteFact{
		fact(0, 0),
		fact(15*time.Minute, 1),
		fact(31*time.Minute, 0),
	}
	windowEnd := base.Add(60 * time.Minute)

	ds, err := BuildFromFacts(facts, windowEnd)
	if err != nil {
		t.Fatal(err)
	}
	r := rowAt(allRows(ds), base)
	if r == nil || r.Label != 1 {
		t.Errorf("alert at exactly t+15m should label the row at t positive")
	}
}

func TestUnlabelableTailDropped(t *testing.T) {
	// windowEnd at t+20m: rows with bucket_start after t+5m cannot see their
	// full 15-minute lookahead and must be dropped, not labeled negative.
	var facts []models.StationMinuteFact
	for i := 0; i < 20; i++ {
		facts = append(facts, fact(time.Duration(i)*time.Minute, 0))
	}
	windowEnd := base.Add(20 * time.Minute)

	ds, err := BuildFromFacts(facts, windowEnd)
	if err != nil {
		t.Fatal(err)
	}
	rows := allRows(ds)

	// Kept iff bucket_start+15m < windowEnd, so buckets 0..4 only.
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	for _, r := range rows {
		if !r.BucketStart.Add(LabelHorizon).Before(windowEnd) {
			t.Errorf("row at %v kept despite incomplete lookahead", r.BucketStart)
		}
	}
}

func TestTimeSplitProportionsAndOrder(t *testing.T) {
	var facts []models.StationMinuteFact
	for i := 0; i < 120; i++ {
		facts = append(facts, fact(time.Duration(i)*time.Minute, i%7))
	}
	windowEnd := base.Add(120 * time.Minute)

	ds, err := BuildFromFacts(facts, windowEnd)
	if err != nil {
		t.Fatal(err)
	}
	n := len(ds.Train) + len(ds.Val) + len(ds.Test)

	if want := int(float64(n) * 0.70); len(ds.Train) != want {
		t.Errorf("train size = %d, want %d", len(ds.Train), want)
	}
	if want := int(float64(n)*0.85) - int(float64(n)*0.70); len(ds.Val) != want {
		t.Errorf("val size = %d, want %d", len(ds.Val), want)
	}

	maxTrain := ds.Train[len(ds.Train)-1].BucketStart
	if ds.Val[0].BucketStart.Before(maxTrain) {
		t.Error("val starts before train ends")
	}
	maxVal := ds.Val[len(ds.Val)-1].BucketStart
	if ds.Test[0].BucketStart.Before(maxVal) {
		t.Error("test starts before val ends")
	}
}

func TestBuildFromFactsEmpty(t *testing.T) {
	if _, err := BuildFromFacts(nil, base); err != ErrNoFacts {
		t.Errorf("err = %v, want ErrNoFacts", err)
	}

	// Facts present but none labelable: same error.
	facts := []models.StationMinuteFact{fact(0, 1)}
	if _, err := BuildFromFacts(facts, base.Add(time.Minute)); err != ErrNoFacts {
		t.Errorf("err = %v, want ErrNoFacts", err)
	}
}

func TestStats(t *testing.T) {
	d := &Dataset{
		Train: []Row{{Label: 1}, {Label: 0}, {Label: 1}, {Label: 0}},
		Val:   []Row{{Label: 0}},
		Test:  nil,
	}
	stats := d.Stats()
	if s := stats["train"]; s.Rows != 4 || s.PositiveRate != 0.5 {
		t.Errorf("train stats = %+v", s)
	}
	if s := stats["val"]; s.Rows != 1 || s.PositiveRate != 0 {
		t.Errorf("val stats = %+v", s)
	}
	if s := stats["test"]; s.Rows != 0 || s.PositiveRate != 0 {
		t.Errorf("test stats = %+v", s)
	}
}
