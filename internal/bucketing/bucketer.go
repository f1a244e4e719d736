package bucketing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mobilitics/mobility-analytics-go/internal/config"
)

// Bucketer maps raw coordinates, timestamps, durations, distances and
// companion counts into irreversible categorical buckets. All methods
// are pure: identical inputs always yield identical outputs.
type Bucketer struct {
	cfg config.AnonymizationConfig
}

// NewBucketer creates a bucketer from the pipeline configuration
func NewBucketer(cfg config.AnonymizationConfig) *Bucketer {
	return &Bucketer{cfg: cfg}
}

// ZoneID quantizes a coordinate into its grid cell key "{latCell}_{lonCell}"
// by floor division with the configured grid size
func (b *Bucketer) ZoneID(lat, lon float64) (string, error) {
	if err := validateCoordinate(lat, lon); err != nil {
		return "", err
	}
	latCell := int(math.Floor(lat / b.cfg.GridSizeDegrees))
	lonCell := int(math.Floor(lon / b.cfg.GridSizeDegrees))
	return fmt.Sprintf("%d_%d", latCell, lonCell), nil
}

// ZoneCenter reconstructs the center point of a zone cell (half-cell
// offset). The result always lies inside the originating cell.
func (b *Bucketer) ZoneCenter(zoneID string) (float64, float64, error) {
	parts := strings.Split(zoneID, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid zone id: %q", zoneID)
	}
	latCell, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zone id: %q", zoneID)
	}
	lonCell, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zone id: %q", zoneID)
	}

	lat := (float64(latCell) + 0.5) * b.cfg.GridSizeDegrees
	lon := (float64(lonCell) + 0.5) * b.cfg.GridSizeDegrees
	return lat, lon, nil
}

// GridSizeDegrees exposes the configured cell edge
func (b *Bucketer) GridSizeDegrees() float64 {
	return b.cfg.GridSizeDegrees
}

// TimeBucket truncates the minute-of-hour to the configured bin
// boundary and formats as "HH:MM". The hour component is unmodified.
// Timestamps are interpreted in UTC.
func (b *Bucketer) TimeBucket(t time.Time) string {
	t = t.UTC()
	minute := t.Minute() - t.Minute()%b.cfg.TimeBinMinutes
	return fmt.Sprintf("%02d:%02d", t.Hour(), minute)
}

// TripDate formats the day-granular date component in UTC
func (b *Bucketer) TripDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DurationBucket returns the half-open duration interval label for a
// value in seconds
func (b *Bucketer) DurationBucket(seconds float64) string {
	return RangeBucket(seconds, b.cfg.DurationBoundaries)
}

// DistanceBucket returns the half-open distance interval label for a
// value in meters
func (b *Bucketer) DistanceBucket(meters float64) string {
	return RangeBucket(meters, b.cfg.DistanceBoundaries)
}

// RangeBucket maps a value onto the half-open interval label
// "lo-hi" = [lo, hi) for the first boundary exceeding the value.
// Values past the last boundary map to the unbounded "N+" label.
// Boundaries must be sorted ascending.
func RangeBucket(value float64, boundaries []float64) string {
	if len(boundaries) == 0 {
		return "0+"
	}
	lo := 0.0
	for _, hi := range boundaries {
		if value < hi {
			return fmt.Sprintf("%s-%s", formatBound(lo), formatBound(hi))
		}
		lo = hi
	}
	return fmt.Sprintf("%s+", formatBound(boundaries[len(boundaries)-1]))
}

// RangeBucketMidpoint parses a range label back to its midpoint.
// The unbounded "N+" label maps to its lower bound, an intentional
// under-approximation since the true upper bound is unknown.
func RangeBucketMidpoint(label string) (float64, error) {
	if strings.HasSuffix(label, "+") {
		lo, err := strconv.ParseFloat(strings.TrimSuffix(label, "+"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid range label: %q", label)
		}
		return lo, nil
	}

	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid range label: %q", label)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid range label: %q", label)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid range label: %q", label)
	}
	return (lo + hi) / 2, nil
}

// CompanionBucket maps a companion count onto the fixed categorical
// set {0, 1-2, 3-4, 5+}
func CompanionBucket(count int) string {
	switch {
	case count <= 0:
		return "0"
	case count <= 2:
		return "1-2"
	case count <= 4:
		return "3-4"
	default:
		return "5+"
	}
}

// validateCoordinate rejects NaN, infinite and out-of-range coordinates
func validateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("malformed coordinate (%v, %v)", lat, lon)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinate out of range (%v, %v)", lat, lon)
	}
	return nil
}

// formatBound renders a boundary without a trailing ".0" for whole numbers
func formatBound(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
