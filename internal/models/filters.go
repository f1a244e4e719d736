package models

// AggregationLevel constants for OD matrix grouping
const (
	AggregationZone     = "zone"      // Group by (origin, destination)
	AggregationZoneTime = "zone_time" // Group by (origin, destination, start time bucket)
)

// AggregateFilter represents filter parameters for aggregate queries.
// Dates are YYYY-MM-DD and inclusive on both ends.
type AggregateFilter struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`

	Zones       []string `form:"zones"`        // Origin zone ids
	TravelModes []string `form:"travel_modes"` // WALK, BIKE, CAR, BUS, TRAIN, OTHER
	TimeBins    []string `form:"time_bins"`    // HH:MM start buckets

	// Chain mining parameters
	MinFrequency     int `form:"min_frequency"`
	MaxPatternLength int `form:"max_pattern_length"`

	AggregationLevel string `form:"aggregation_level"` // zone (default) or zone_time
}

// DateRange represents an optional raw-trip fetch window (Unix seconds)
type DateRange struct {
	StartTime int64 `form:"startTime"`
	EndTime   int64 `form:"endTime"`
}
