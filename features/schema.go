// Package features holds the canonical feature schema and the rolling-window
// computation shared by the offline dataset builder and the online serving
// path. Both must go through this package: any divergence between the two is
// a parity bug in the trained model's inputs.
package features

// Feature names. Order is the canonical model input order (alphabetical);
// the trainers and the predict endpoint both index vectors through it.
const (
	AlertsCount             = "alerts_count"
	AlertsSum15m            = "alerts_sum_15m"
	AlertsSum60m            = "alerts_sum_60m"
	DayOfWeek               = "day_of_week"
	HourOfDay               = "hour_of_day"
	MajorAlertsCount        = "major_alerts_count"
	TripUpdatesCount        = "trip_updates_count"
	TripUpdatesSum15m       = "trip_updates_sum_15m"
	TripUpdatesSum60m       = "trip_updates_sum_60m"
	VehiclePositionsCount   = "vehicle_positions_count"
	VehiclePositionsSum15m  = "vehicle_positions_sum_15m"
	VehiclePositionsSum60m  = "vehicle_positions_sum_60m"
)

var Order = []string{
	AlertsCount,
	AlertsSum15m,
	AlertsSum60m,
	DayOfWeek,
	HourOfDay,
	MajorAlertsCount,
	TripUpdatesCount,
	TripUpdatesSum15m,
	TripUpdatesSum60m,
	VehiclePositionsCount,
	VehiclePositionsSum15m,
	VehiclePositionsSum60m,
}

// Ordered flattens a feature map into the canonical input order.
func Ordered(v map[string]float64) []float64 {
	out := make([]float64, len(Order))
	for i, name := range Order {
		out[i] = v[name]
	}
	return out
}
