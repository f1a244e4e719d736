package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mobilitics/mobility-analytics-go/internal/models"
)

// AnonymizedTripRepository handles database operations for anonymized
// trip records. The store is append-only: the orchestrator inserts,
// the aggregate builders read, nothing updates or deletes.
type AnonymizedTripRepository struct {
	db *sql.DB
}

// NewAnonymizedTripRepository creates a new anonymized trip repository
func NewAnonymizedTripRepository(db *sql.DB) *AnonymizedTripRepository {
	return &AnonymizedTripRepository{db: db}
}

const anonymizedTripColumns = `id, pseudonym_id, trip_date, origin_zone, dest_zone,
	start_time_bucket, end_time_bucket, duration_bucket, distance_bucket,
	companion_bucket, duration_seconds, distance_meters,
	travel_mode, purpose, created_at`

// Insert appends one anonymized trip record
func (r *AnonymizedTripRepository) Insert(rec *models.AnonymizedTripRecord) error {
	query := `
		INSERT INTO anonymized_trips (
			pseudonym_id, trip_date, origin_zone, dest_zone,
			start_time_bucket, end_time_bucket, duration_bucket, distance_bucket,
			companion_bucket, duration_seconds, distance_meters,
			travel_mode, purpose
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		rec.PseudonymID, rec.TripDate, rec.OriginZone, rec.DestZone,
		rec.StartTimeBucket, rec.EndTimeBucket, rec.DurationBucket, rec.DistanceBucket,
		rec.CompanionBucket, rec.DurationSeconds, rec.DistanceMeters,
		rec.TravelMode, rec.Purpose,
	)
	if err != nil {
		return fmt.Errorf("failed to insert anonymized trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// GetRecords retrieves anonymized trips matching the aggregate filter,
// ordered by pseudonym, date and start bucket so chain mining can
// consume them directly
func (r *AnonymizedTripRepository) GetRecords(filter models.AggregateFilter) ([]models.AnonymizedTripRecord, error) {
	query := `SELECT ` + anonymizedTripColumns + ` FROM anonymized_trips`

	var conditions []string
	var args []interface{}

	if filter.StartDate != "" {
		conditions = append(conditions, "trip_date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		conditions = append(conditions, "trip_date <= ?")
		args = append(args, filter.EndDate)
	}
	if len(filter.Zones) > 0 {
		conditions = append(conditions, inClause("origin_zone", len(filter.Zones)))
		for _, z := range filter.Zones {
			args = append(args, z)
		}
	}
	if len(filter.TravelModes) > 0 {
		conditions = append(conditions, inClause("travel_mode", len(filter.TravelModes)))
		for _, m := range filter.TravelModes {
			args = append(args, m)
		}
	}
	if len(filter.TimeBins) > 0 {
		conditions = append(conditions, inClause("start_time_bucket", len(filter.TimeBins)))
		for _, tb := range filter.TimeBins {
			args = append(args, tb)
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY pseudonym_id, trip_date, start_time_bucket"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anonymized trips: %w", err)
	}
	defer rows.Close()

	var records []models.AnonymizedTripRecord
	for rows.Next() {
		var rec models.AnonymizedTripRecord
		err := rows.Scan(
			&rec.ID, &rec.PseudonymID, &rec.TripDate, &rec.OriginZone, &rec.DestZone,
			&rec.StartTimeBucket, &rec.EndTimeBucket, &rec.DurationBucket, &rec.DistanceBucket,
			&rec.CompanionBucket, &rec.DurationSeconds, &rec.DistanceMeters,
			&rec.TravelMode, &rec.Purpose, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anonymized trip: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountInRange returns the number of anonymized trips in an inclusive
// date range
func (r *AnonymizedTripRepository) CountInRange(startDate, endDate string) (int64, error) {
	query := "SELECT COUNT(*) FROM anonymized_trips"
	var conditions []string
	var args []interface{}

	if startDate != "" {
		conditions = append(conditions, "trip_date >= ?")
		args = append(args, startDate)
	}
	if endDate != "" {
		conditions = append(conditions, "trip_date <= ?")
		args = append(args, endDate)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int64
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count anonymized trips: %w", err)
	}
	return count, nil
}

func inClause(column string, n int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", n), ",")
	return fmt.Sprintf("%s IN (%s)", column, placeholders)
}
