package models

import "time"

// RawTrip is an individually identifiable trip record owned by the trip
// collection service. This module only reads it and sets anonymized_at;
// no other field is ever mutated here.
type RawTrip struct {
	ID int64 `json:"id" db:"id"`

	UserID string `json:"user_id" db:"user_id"`

	// Raw coordinates, discarded during anonymization
	OriginLat float64 `json:"origin_lat" db:"origin_lat"`
	OriginLon float64 `json:"origin_lon" db:"origin_lon"`
	DestLat   float64 `json:"dest_lat" db:"dest_lat"`
	DestLon   float64 `json:"dest_lon" db:"dest_lon"`

	// Temporal info
	StartTime       int64 `json:"start_time" db:"start_ts"` // Unix timestamp
	EndTime         int64 `json:"end_time" db:"end_ts"`     // Unix timestamp
	DurationSeconds int64 `json:"duration_seconds" db:"duration_seconds"`

	DistanceMeters float64 `json:"distance_meters" db:"distance_meters"`

	TravelMode     string `json:"travel_mode" db:"travel_mode"` // WALK, BIKE, CAR, BUS, TRAIN, OTHER
	Purpose        string `json:"purpose" db:"purpose"`         // WORK, SCHOOL, SHOPPING, LEISURE, HOME, OTHER
	CompanionCount int    `json:"companion_count" db:"companion_count"`

	// Eligibility flags: only synced, non-private, not-yet-anonymized
	// trips enter the pipeline
	Synced       bool       `json:"synced" db:"synced"`
	IsPrivate    bool       `json:"is_private" db:"is_private"`
	AnonymizedAt *time.Time `json:"anonymized_at,omitempty" db:"anonymized_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Eligible reports whether the trip may enter the anonymization pipeline
func (t *RawTrip) Eligible() bool {
	return t.Synced && !t.IsPrivate && t.AnonymizedAt == nil
}
