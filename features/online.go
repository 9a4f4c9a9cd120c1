package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delay-risk-api/models"
)

// ErrNoData means the requested station has no 60-second facts at all. The
// serving layer maps it to a client-facing not-found response.
var ErrNoData = errors.New("no facts for station")

// FactReader is the slice of the fact store the online computer needs.
type FactReader interface {
	// LatestFact returns the most recent 60-second fact for the station,
	// or ErrNoData.
	LatestFact(ctx context.Context, lineID, stopID string) (*models.StationMinuteFact, error)
	// StationFacts returns the station's 60-second facts with bucket_start
	// in (from, to], ascending.
	StationFacts(ctx context.Context, lineID, stopID string, from, to time.Time) ([]models.StationMinuteFact, error)
}

// Computer derives the serving-time feature vector for one station, anchored
// at its latest fact.
type Computer struct {
	reader FactReader
}

func NewComputer(reader FactReader) *Computer {
	return &Computer{reader: reader}
}

// Compute returns the feature vector and the bucket it is anchored at.
func (c *Computer) Compute(ctx context.Context, lineID, stopID string) (map[string]float64, time.Time, error) {
	latest, err := c.reader.LatestFact(ctx, lineID, stopID)
	if err != nil {
		return nil, time.Time{}, err
	}

	facts, err := c.reader.StationFacts(ctx, lineID, stopID,
		latest.BucketStart.Add(-LongWindow), latest.BucketStart)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load station facts: %w", err)
	}
	if len(facts) == 0 {
		// The latest fact itself lies in (latest-60m, latest].
		return nil, time.Time{}, ErrNoData
	}

	return VectorAt(facts, len(facts)-1), latest.BucketStart, nil
}
