package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilitics/mobility-analytics-go/internal/bucketing"
	"github.com/mobilitics/mobility-analytics-go/internal/config"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
)

func TestHeatmapGroupsByOriginZone(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)
	cfg := config.DefaultAnonymization()
	bucketer := bucketing.NewBucketer(cfg)

	zoneA, err := bucketer.ZoneID(39.904, 116.407)
	require.NoError(t, err)
	zoneB, err := bucketer.ZoneID(39.95, 116.45)
	require.NoError(t, err)

	durations := []int64{600, 1800}
	for i, d := range durations {
		rec := record("u1", "2024-03-05", zoneA, zoneB, "08:00")
		rec.DurationSeconds = d
		if i == 1 {
			rec.TravelMode = "CAR"
			rec.StartTimeBucket = "17:30"
		}
		require.NoError(t, repo.Insert(rec))
	}
	require.NoError(t, repo.Insert(record("u2", "2024-03-05", zoneB, zoneA, "09:00")))

	builder := NewHeatmapBuilder(repo, bucketer)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Sorted by trip count descending
	assert.Equal(t, zoneA, entries[0].ZoneID)
	assert.Equal(t, 2, entries[0].TripCount)

	// Average duration uses the real per-trip values
	assert.InDelta(t, 1200.0, entries[0].AvgDurationSeconds, 1e-9)
	assert.Equal(t, map[string]int{"BUS": 1, "CAR": 1}, entries[0].ModeDistribution)
	assert.Equal(t, map[string]int{"08:00": 1, "17:30": 1}, entries[0].TimeHistogram)
}

func TestHeatmapCenterInsideZoneCell(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)
	cfg := config.DefaultAnonymization()
	bucketer := bucketing.NewBucketer(cfg)

	lat, lon := 39.9042, 116.4074
	zone, err := bucketer.ZoneID(lat, lon)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(record("u1", "2024-03-05", zone, "X", "08:00")))

	builder := NewHeatmapBuilder(repo, bucketer)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	wantLat, wantLon, err := bucketer.ZoneCenter(zone)
	require.NoError(t, err)
	assert.Equal(t, wantLat, entries[0].CenterLat)
	assert.Equal(t, wantLon, entries[0].CenterLon)

	// The reconstructed center stays within one grid cell of the raw point
	g := cfg.GridSizeDegrees
	assert.InDelta(t, lat, entries[0].CenterLat, g)
	assert.InDelta(t, lon, entries[0].CenterLon, g)

	assert.Greater(t, entries[0].CellRadiusMeters, 0.0)
	// A 0.01 degree cell is roughly 1.1km on a side; the radius must be
	// in that order of magnitude
	assert.Less(t, entries[0].CellRadiusMeters, 2000.0)
}

func TestHeatmapSkipsCorruptedZones(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAnonymizedTripRepository(db)
	bucketer := bucketing.NewBucketer(config.DefaultAnonymization())

	require.NoError(t, repo.Insert(record("u1", "2024-03-05", "not-a-zone", "X", "08:00")))
	require.NoError(t, repo.Insert(record("u1", "2024-03-05", "3990_11640", "X", "08:00")))

	builder := NewHeatmapBuilder(repo, bucketer)
	entries, err := builder.Build(models.AggregateFilter{})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "3990_11640", entries[0].ZoneID)
}
