// Package aggregation turns raw feed events into per-bucket station facts.
// Re-running over any overlapping range converges to the same fact rows:
// counts are recomputed from the raw events of each covered bucket and
// merged by overwrite, never incremented.
package aggregation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"delay-risk-api/models"
)

// BucketSizes are the two independent aggregation granularities.
var BucketSizes = []int{models.BucketSize60, models.BucketSize300}

// EventReader is the slice of the event store the aggregator needs.
type EventReader interface {
	// ReadEvents returns raw events with event_ts in [from, to), ascending.
	ReadEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error)
}

// FactWriter merges fact rows on the (bucket, size, line, stop) key.
type FactWriter interface {
	UpsertFacts(ctx context.Context, facts []models.StationMinuteFact) (int64, error)
}

// Aggregator reads a raw event range and upserts the derived facts.
type Aggregator struct {
	events EventReader
	facts  FactWriter
}

func New(events EventReader, facts FactWriter) *Aggregator {
	return &Aggregator{events: events, facts: facts}
}

// Run aggregates events with event_ts in [from, to) at every bucket size and
// upserts the results. Returns the number of fact rows written.
func (a *Aggregator) Run(ctx context.Context, from, to time.Time) (int64, error) {
	events, err := a.events.ReadEvents(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("read events: %w", err)
	}

	facts := Aggregate(events, from, to, BucketSizes...)
	if len(facts) == 0 {
		return 0, nil
	}

	written, err := a.facts.UpsertFacts(ctx, facts)
	if err != nil {
		return 0, fmt.Errorf("upsert facts: %w", err)
	}
	return written, nil
}

type groupKey struct {
	bucket  int64
	size    int
	line    string
	stop    string
	hasLine bool
	hasStop bool
}

// Aggregate groups events into fact rows, deterministically ordered. Only
// buckets whose full span lies inside [from, to) are emitted; a bucket cut
// by either edge of the range is withheld so a partial read can never
// become a final count. The caller's lookback must be wide enough that the
// next pass re-covers the withheld boundary buckets.
func Aggregate(events []models.RawEvent, from, to time.Time, bucketSizes ...int) []models.StationMinuteFact {
	groups := make(map[groupKey]*models.StationMinuteFact)

	for _, size := range bucketSizes {
		width := time.Duration(size) * time.Second
		coveredFrom := alignUp(from, width)
		coveredTo := to.Truncate(width)

		for _, ev := range events {
			bucket := ev.EventTS.Truncate(width)
			if bucket.Before(coveredFrom) || !bucket.Before(coveredTo) {
				continue
			}

			key := groupKey{bucket: bucket.UnixNano(), size: size}
			if ev.LineID != nil {
				key.line, key.hasLine = *ev.LineID, true
			}
			if ev.StopID != nil {
				key.stop, key.hasStop = *ev.StopID, true
			}

			fact := groups[key]
			if fact == nil {
				fact = &models.StationMinuteFact{
					BucketStart:       bucket,
					BucketSizeSeconds: size,
					LineID:            ev.LineID,
					StopID:            ev.StopID,
				}
				groups[key] = fact
			}

			switch ev.FeedType {
			case models.FeedAlert:
				fact.AlertsCount++
				if isMajorAlert(ev.Payload) {
					fact.MajorAlertsCount++
				}
			case models.FeedTripUpdate:
				fact.TripUpdatesCount++
			case models.FeedVehiclePosition:
				fact.VehiclePositionsCount++
			}
		}
	}

	facts := make([]models.StationMinuteFact, 0, len(groups))
	for _, fact := range groups {
		facts = append(facts, *fact)
	}
	sort.Slice(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		if a.BucketSizeSeconds != b.BucketSizeSeconds {
			return a.BucketSizeSeconds < b.BucketSizeSeconds
		}
		if !a.BucketStart.Equal(b.BucketStart) {
			return a.BucketStart.Before(b.BucketStart)
		}
		ak, bk := a.StationKey(), b.StationKey()
		if ak.Line != bk.Line {
			return ak.Line < bk.Line
		}
		return ak.Stop < bk.Stop
	})
	return facts
}

func alignUp(t time.Time, width time.Duration) time.Time {
	aligned := t.Truncate(width)
	if aligned.Before(t) {
		aligned = aligned.Add(width)
	}
	return aligned
}

type alertPayload struct {
	Severity string `json:"severity"`
}

func isMajorAlert(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	var p alertPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	return strings.EqualFold(p.Severity, "major") || strings.EqualFold(p.Severity, "severe")
}
