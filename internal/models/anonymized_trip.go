package models

import "time"

// AnonymizedTripRecord is the anonymized form of a raw trip. Immutable
// once written, append-only. It carries no raw coordinate, no raw
// timestamp and no pointer back to the originating raw trip id.
//
// trip_date (day granularity) plus the binned time-of-day buckets are
// the only temporal fields; duration_seconds and distance_meters are
// exact but positionless, retained so chain mining can aggregate real
// values instead of bucket midpoints.
type AnonymizedTripRecord struct {
	ID int64 `json:"id" db:"id"`

	PseudonymID string `json:"pseudonym_id" db:"pseudonym_id"`

	TripDate string `json:"trip_date" db:"trip_date"` // YYYY-MM-DD (UTC)

	// Spatial buckets
	OriginZone string `json:"origin_zone" db:"origin_zone"`
	DestZone   string `json:"dest_zone" db:"dest_zone"`

	// Temporal buckets (HH:MM, truncated to the configured bin)
	StartTimeBucket string `json:"start_time_bucket" db:"start_time_bucket"`
	EndTimeBucket   string `json:"end_time_bucket" db:"end_time_bucket"`

	// Categorical buckets
	DurationBucket  string `json:"duration_bucket" db:"duration_bucket"`
	DistanceBucket  string `json:"distance_bucket" db:"distance_bucket"`
	CompanionBucket string `json:"companion_bucket" db:"companion_bucket"`

	// Exact non-positional numerics for genuine aggregation
	DurationSeconds int64   `json:"duration_seconds" db:"duration_seconds"`
	DistanceMeters  float64 `json:"distance_meters" db:"distance_meters"`

	TravelMode string `json:"travel_mode" db:"travel_mode"`
	Purpose    string `json:"purpose" db:"purpose"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
