package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mobilitics/mobility-analytics-go/internal/models"
)

// RawTripRepository handles database operations for raw trips. The
// anonymization pipeline only reads eligible trips and sets the
// anonymized_at marker; all other writes belong to the trip collection
// service.
type RawTripRepository struct {
	db *sql.DB
}

// NewRawTripRepository creates a new raw trip repository
func NewRawTripRepository(db *sql.DB) *RawTripRepository {
	return &RawTripRepository{db: db}
}

const rawTripColumns = `id, user_id, origin_lat, origin_lon, dest_lat, dest_lon,
	start_ts, end_ts, duration_seconds, distance_meters,
	travel_mode, purpose, companion_count, synced, is_private,
	anonymized_at, created_at`

// FetchEligibleTrips retrieves trips that may enter the anonymization
// pipeline: synced, not private, not yet anonymized. An optional date
// range (Unix seconds) narrows the window on trip start time.
func (r *RawTripRepository) FetchEligibleTrips(dateRange models.DateRange) ([]models.RawTrip, error) {
	query := `SELECT ` + rawTripColumns + `
		FROM raw_trips
		WHERE synced = 1 AND is_private = 0 AND anonymized_at IS NULL`

	var args []interface{}
	if dateRange.StartTime > 0 {
		query += " AND start_ts >= ?"
		args = append(args, dateRange.StartTime)
	}
	if dateRange.EndTime > 0 {
		query += " AND start_ts <= ?"
		args = append(args, dateRange.EndTime)
	}
	query += " ORDER BY user_id, start_ts"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible trips: %w", err)
	}
	defer rows.Close()

	var trips []models.RawTrip
	for rows.Next() {
		t, err := scanRawTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}

	return trips, rows.Err()
}

// markBatchSize caps the ids per bulk UPDATE; each id binds one host
// parameter and SQLite limits those per statement
const markBatchSize = 500

// MarkAnonymized sets the anonymized_at marker on the given trips in
// fixed-size bulk updates. Trips carrying the marker are never fetched
// again.
func (r *RawTripRepository) MarkAnonymized(tripIDs []int64, at time.Time) error {
	for start := 0; start < len(tripIDs); start += markBatchSize {
		end := start + markBatchSize
		if end > len(tripIDs) {
			end = len(tripIDs)
		}
		chunk := tripIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := fmt.Sprintf("UPDATE raw_trips SET anonymized_at = ? WHERE id IN (%s)", placeholders)

		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, at.UTC())
		for _, id := range chunk {
			args = append(args, id)
		}

		if _, err := r.db.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to mark trips anonymized: %w", err)
		}
	}
	return nil
}

// Insert creates a raw trip record. Exists for the trip collection
// boundary and for tests; the pipeline itself never inserts raw trips.
func (r *RawTripRepository) Insert(t *models.RawTrip) error {
	query := `
		INSERT INTO raw_trips (
			user_id, origin_lat, origin_lon, dest_lat, dest_lon,
			start_ts, end_ts, duration_seconds, distance_meters,
			travel_mode, purpose, companion_count, synced, is_private
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		t.UserID, t.OriginLat, t.OriginLon, t.DestLat, t.DestLon,
		t.StartTime, t.EndTime, t.DurationSeconds, t.DistanceMeters,
		t.TravelMode, t.Purpose, t.CompanionCount, boolToInt(t.Synced), boolToInt(t.IsPrivate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert raw trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// CountEligible returns the number of trips currently eligible for
// anonymization
func (r *RawTripRepository) CountEligible() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM raw_trips WHERE synced = 1 AND is_private = 0 AND anonymized_at IS NULL",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible trips: %w", err)
	}
	return count, nil
}

func scanRawTrip(rows *sql.Rows) (models.RawTrip, error) {
	var t models.RawTrip
	var synced, isPrivate int
	var anonymizedAt sql.NullTime

	err := rows.Scan(
		&t.ID, &t.UserID, &t.OriginLat, &t.OriginLon, &t.DestLat, &t.DestLon,
		&t.StartTime, &t.EndTime, &t.DurationSeconds, &t.DistanceMeters,
		&t.TravelMode, &t.Purpose, &t.CompanionCount, &synced, &isPrivate,
		&anonymizedAt, &t.CreatedAt,
	)
	if err != nil {
		return t, fmt.Errorf("failed to scan raw trip: %w", err)
	}

	t.Synced = synced != 0
	t.IsPrivate = isPrivate != 0
	if anonymizedAt.Valid {
		at := anonymizedAt.Time
		t.AnonymizedAt = &at
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
