package bucketing

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilitics/mobility-analytics-go/internal/config"
)

func testBucketer() *Bucketer {
	return NewBucketer(config.DefaultAnonymization())
}

func TestZoneIDDeterministic(t *testing.T) {
	b := testBucketer()

	first, err := b.ZoneID(39.9042, 116.4074)
	require.NoError(t, err)

	// Identical input always yields identical output, independent of
	// call order or prior calls
	_, err = b.ZoneID(-33.8688, 151.2093)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := b.ZoneID(39.9042, 116.4074)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestZoneIDFloorDivision(t *testing.T) {
	b := NewBucketer(config.AnonymizationConfig{GridSizeDegrees: 0.01})

	zone, err := b.ZoneID(39.9042, 116.4074)
	require.NoError(t, err)
	assert.Equal(t, "3990_11640", zone)

	// Negative coordinates floor toward negative infinity
	zone, err = b.ZoneID(-0.005, -0.005)
	require.NoError(t, err)
	assert.Equal(t, "-1_-1", zone)
}

func TestZoneIDRejectsMalformedCoordinates(t *testing.T) {
	b := testBucketer()

	cases := [][2]float64{
		{math.NaN(), 10},
		{10, math.NaN()},
		{math.Inf(1), 0},
		{91, 0},
		{-91, 0},
		{0, 181},
		{0, -181},
	}
	for _, c := range cases {
		_, err := b.ZoneID(c[0], c[1])
		assert.Error(t, err, "expected rejection for (%v, %v)", c[0], c[1])
	}
}

func TestZoneCenterInsideOriginatingCell(t *testing.T) {
	grids := []float64{0.01, 0.025, 0.5}
	points := [][2]float64{
		{39.9042, 116.4074},
		{-33.8688, 151.2093},
		{0, 0},
		{-0.0001, -0.0001},
		{89.99, 179.99},
		{-89.99, -179.99},
		{52.5200, 13.4050},
	}

	for _, g := range grids {
		b := NewBucketer(config.AnonymizationConfig{GridSizeDegrees: g})
		for _, p := range points {
			lat, lon := p[0], p[1]
			zone, err := b.ZoneID(lat, lon)
			require.NoError(t, err)

			cLat, cLon, err := b.ZoneCenter(zone)
			require.NoError(t, err)

			minLat := math.Floor(lat/g) * g
			minLon := math.Floor(lon/g) * g
			assert.GreaterOrEqual(t, cLat, minLat, "grid %v point %v", g, p)
			assert.Less(t, cLat, minLat+g, "grid %v point %v", g, p)
			assert.GreaterOrEqual(t, cLon, minLon, "grid %v point %v", g, p)
			assert.Less(t, cLon, minLon+g, "grid %v point %v", g, p)
		}
	}
}

func TestZoneCenterRejectsGarbage(t *testing.T) {
	b := testBucketer()

	for _, id := range []string{"", "abc", "1_2_3", "x_1", "1_y"} {
		_, _, err := b.ZoneCenter(id)
		assert.Error(t, err, "zone id %q", id)
	}
}

func TestTimeBucketTruncatesToBin(t *testing.T) {
	b := NewBucketer(config.AnonymizationConfig{TimeBinMinutes: 15})

	cases := map[string]string{
		"2024-03-05T10:00:00Z": "10:00",
		"2024-03-05T10:07:59Z": "10:00",
		"2024-03-05T10:45:00Z": "10:45",
		"2024-03-05T13:10:30Z": "13:00",
		"2024-03-05T23:59:59Z": "23:45",
		"2024-03-05T00:14:59Z": "00:00",
	}
	for in, want := range cases {
		ts, err := time.Parse(time.RFC3339, in)
		require.NoError(t, err)
		assert.Equal(t, want, b.TimeBucket(ts), "input %s", in)
	}
}

func TestTimeBucketHourUnmodified(t *testing.T) {
	b := NewBucketer(config.AnonymizationConfig{TimeBinMinutes: 30})

	for hour := 0; hour < 24; hour++ {
		ts := time.Date(2024, 3, 5, hour, 29, 0, 0, time.UTC)
		assert.Equal(t, fmt.Sprintf("%02d:00", hour), b.TimeBucket(ts))
	}
}

func TestRangeBucket(t *testing.T) {
	boundaries := []float64{300, 900, 1800}

	cases := map[float64]string{
		0:    "0-300",
		299:  "0-300",
		300:  "300-900",
		899:  "300-900",
		900:  "900-1800",
		1799: "900-1800",
		1800: "1800+",
		1e9:  "1800+",
	}
	for value, want := range cases {
		assert.Equal(t, want, RangeBucket(value, boundaries), "value %v", value)
	}
}

func TestRangeBucketIdempotent(t *testing.T) {
	boundaries := []float64{500, 1000, 2000, 5000}

	for i := 0; i < 5; i++ {
		assert.Equal(t, "1000-2000", RangeBucket(1500, boundaries))
	}
}

func TestRangeBucketMidpoint(t *testing.T) {
	mid, err := RangeBucketMidpoint("300-900")
	require.NoError(t, err)
	assert.Equal(t, 600.0, mid)

	mid, err = RangeBucketMidpoint("0-300")
	require.NoError(t, err)
	assert.Equal(t, 150.0, mid)

	// Unbounded label maps to its lower bound
	mid, err = RangeBucketMidpoint("1800+")
	require.NoError(t, err)
	assert.Equal(t, 1800.0, mid)

	_, err = RangeBucketMidpoint("garbage")
	assert.Error(t, err)
}

func TestCompanionBucket(t *testing.T) {
	cases := map[int]string{
		-1: "0",
		0:  "0",
		1:  "1-2",
		2:  "1-2",
		3:  "3-4",
		4:  "3-4",
		5:  "5+",
		12: "5+",
	}
	for count, want := range cases {
		assert.Equal(t, want, CompanionBucket(count), "count %d", count)
	}
}
