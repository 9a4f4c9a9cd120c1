package features

import (
	"sort"

	"delay-risk-api/models"
)

// Station is one station key with its facts in ascending bucket order.
type Station struct {
	Key   models.StationKey
	Facts []models.StationMinuteFact
}

// GroupStations partitions facts by station key, dropping feed-level rows
// (no line and no stop). Stations come back sorted by key and each station's
// facts sorted by bucket start, so downstream output is deterministic.
func GroupStations(facts []models.StationMinuteFact) []Station {
	byKey := make(map[models.StationKey][]models.StationMinuteFact)
	for _, f := range facts {
		if f.FeedLevel() {
			continue
		}
		key := f.StationKey()
		byKey[key] = append(byKey[key], f)
	}

	stations := make([]Station, 0, len(byKey))
	for key, fs := range byKey {
		sort.Slice(fs, func(i, j int) bool { return fs[i].BucketStart.Before(fs[j].BucketStart) })
		stations = append(stations, Station{Key: key, Facts: fs})
	}
	sort.Slice(stations, func(i, j int) bool {
		if stations[i].Key.Line != stations[j].Key.Line {
			return stations[i].Key.Line < stations[j].Key.Line
		}
		return stations[i].Key.Stop < stations[j].Key.Stop
	})
	return stations
}
