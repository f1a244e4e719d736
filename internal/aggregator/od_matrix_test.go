package aggregator

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilitics/mobility-analytics-go/internal/database"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// record builds an anonymized trip with sensible bucket defaults;
// tests override what they assert on
func record(pseudonym, date, origin, dest, startBucket string) *models.AnonymizedTripRecord {
	return &models.AnonymizedTripRecord{
		PseudonymID:     pseudonym,
		TripDate:        date,
		OriginZone:      origin,
		DestZone:        dest,
		StartTimeBucket: startBucket,
		EndTimeBucket:   startBucket,
		DurationBucket:  "900-1800",
		DistanceBucket:  "2000-5000",
		CompanionBucket: "0",
		DurationSeconds: 1200,
		DistanceMeters:  3100,
		TravelMode:      "BUS",
		Purpose:         "WORK",
	}
}

func TestODMatrixCountConservation(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)

	pairs := [][2]string{
		{"A", "B"}, {"A", "B"}, {"A", "B"},
		{"B", "C"}, {"B", "C"},
		{"C", "A"},
	}
	for i, p := range pairs {
		rec := record("u1", "2024-03-05", p[0], p[1], "08:00")
		if i%2 == 0 {
			rec.TravelMode = "CAR"
		}
		require.NoError(t, repo.Insert(rec))
	}

	builder := NewODMatrixBuilder(repo)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)

	// Before noise, the matrix conserves the record count exactly
	total := 0
	for _, e := range entries {
		total += e.TripCount
	}
	stored, err := repo.CountInRange("", "")
	require.NoError(t, err)
	assert.Equal(t, int(stored), total)
	assert.Equal(t, len(pairs), total)
}

func TestODMatrixSortingAndTieBreak(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)

	// A->B x3, then two pairs tied at 2: (B->C) and (A->C)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(record("u1", "2024-03-05", "A", "B", "08:00")))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Insert(record("u1", "2024-03-05", "B", "C", "09:00")))
		require.NoError(t, repo.Insert(record("u1", "2024-03-05", "A", "C", "09:00")))
	}

	builder := NewODMatrixBuilder(repo)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "A", entries[0].OriginZone)
	assert.Equal(t, "B", entries[0].DestZone)
	assert.Equal(t, 3, entries[0].TripCount)

	// Tie at 2 broken by ascending (origin, dest)
	assert.Equal(t, "A", entries[1].OriginZone)
	assert.Equal(t, "C", entries[1].DestZone)
	assert.Equal(t, "B", entries[2].OriginZone)
	assert.Equal(t, "C", entries[2].DestZone)
}

func TestODMatrixMidpointApproximation(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)

	for i := 0; i < 2; i++ {
		rec := record("u1", "2024-03-05", "A", "B", "08:00")
		rec.DistanceBucket = "2000-5000" // midpoint 3500
		rec.DurationBucket = "900-1800"  // midpoint 1350
		require.NoError(t, repo.Insert(rec))
	}

	builder := NewODMatrixBuilder(repo)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Totals come from bucket midpoints, not the retained numerics
	assert.InDelta(t, 7000.0, entries[0].TotalDistanceMeters, 1e-9)
	assert.InDelta(t, 1350.0, entries[0].AvgDurationSeconds, 1e-9)
}

func TestODMatrixDistributions(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)

	modes := []string{"BUS", "BUS", "CAR"}
	buckets := []string{"08:00", "08:00", "17:30"}
	for i := range modes {
		rec := record("u1", "2024-03-05", "A", "B", buckets[i])
		rec.TravelMode = modes[i]
		require.NoError(t, repo.Insert(rec))
	}

	builder := NewODMatrixBuilder(repo)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, map[string]int{"BUS": 2, "CAR": 1}, entries[0].ModeDistribution)
	assert.Equal(t, map[string]int{"08:00": 2, "17:30": 1}, entries[0].TimeDistribution)
}

func TestODMatrixZoneTimeAggregation(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)

	require.NoError(t, repo.Insert(record("u1", "2024-03-05", "A", "B", "08:00")))
	require.NoError(t, repo.Insert(record("u1", "2024-03-05", "A", "B", "17:30")))

	builder := NewODMatrixBuilder(repo)

	flat, err := builder.Build(models.AggregateFilter{AggregationLevel: models.AggregationZone})
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Empty(t, flat[0].TimeBucket)

	byTime, err := builder.Build(models.AggregateFilter{AggregationLevel: models.AggregationZoneTime})
	require.NoError(t, err)
	require.Len(t, byTime, 2)
	assert.NotEmpty(t, byTime[0].TimeBucket)
}

func TestODMatrixDateAndModeFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)

	require.NoError(t, repo.Insert(record("u1", "2024-03-04", "A", "B", "08:00")))
	require.NoError(t, repo.Insert(record("u1", "2024-03-05", "A", "B", "08:00")))
	outOfRange := record("u1", "2024-04-01", "A", "B", "08:00")
	outOfRange.TravelMode = "CAR"
	require.NoError(t, repo.Insert(outOfRange))

	builder := NewODMatrixBuilder(repo)

	entries, err := builder.Build(models.AggregateFilter{
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].TripCount)

	entries, err = builder.Build(models.AggregateFilter{TravelModes: []string{"CAR"}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].TripCount)
}
