package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilitics/mobility-analytics-go/internal/models"
)

func seedRawTrip(t *testing.T, repo *RawTripRepository, userID string, start time.Time) *models.RawTrip {
	t.Helper()
	trip := &models.RawTrip{
		UserID:          userID,
		OriginLat:       39.90,
		OriginLon:       116.40,
		DestLat:         39.95,
		DestLon:         116.45,
		StartTime:       start.Unix(),
		EndTime:         start.Add(30 * time.Minute).Unix(),
		DurationSeconds: 1800,
		DistanceMeters:  4200,
		TravelMode:      "BUS",
		Purpose:         "WORK",
		Synced:          true,
	}
	require.NoError(t, repo.Insert(trip))
	return trip
}

func TestMarkAnonymizedSpansBatchBoundary(t *testing.T) {
	repo := NewRawTripRepository(setupTestDB(t))
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	// More ids than one bulk UPDATE carries, so the update must chunk
	n := 2*markBatchSize + 17
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		trip := seedRawTrip(t, repo, "user-a", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, trip.ID)
	}

	require.NoError(t, repo.MarkAnonymized(ids, time.Now()))

	eligible, err := repo.CountEligible()
	require.NoError(t, err)
	assert.Equal(t, 0, eligible)

	trips, err := repo.FetchEligibleTrips(models.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestMarkAnonymizedEmptyAndPartial(t *testing.T) {
	repo := NewRawTripRepository(setupTestDB(t))
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	marked := seedRawTrip(t, repo, "user-a", base)
	kept := seedRawTrip(t, repo, "user-a", base.Add(time.Hour))

	require.NoError(t, repo.MarkAnonymized(nil, time.Now()))
	require.NoError(t, repo.MarkAnonymized([]int64{marked.ID}, time.Now()))

	trips, err := repo.FetchEligibleTrips(models.DateRange{})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, kept.ID, trips[0].ID)
	assert.True(t, trips[0].Eligible())
}
