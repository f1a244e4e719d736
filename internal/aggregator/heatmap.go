package aggregator

import (
	"fmt"
	"log"
	"sort"

	"github.com/mobilitics/mobility-analytics-go/internal/bucketing"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
	"github.com/mobilitics/mobility-analytics-go/internal/spatial"
	"github.com/mobilitics/mobility-analytics-go/internal/stats"
)

// HeatmapBuilder derives per-zone aggregates from the anonymized trip
// store, grouped by origin zone. Read-only.
type HeatmapBuilder struct {
	records  *repository.AnonymizedTripRepository
	bucketer *bucketing.Bucketer
}

// NewHeatmapBuilder creates a heatmap builder
func NewHeatmapBuilder(records *repository.AnonymizedTripRepository, bucketer *bucketing.Bucketer) *HeatmapBuilder {
	return &HeatmapBuilder{records: records, bucketer: bucketer}
}

// Build groups anonymized trips by origin zone, reconstructing a
// representative center point for each zone via the inverse grid
// mapping and attaching mode and time-of-day distributions
func (b *HeatmapBuilder) Build(filter models.AggregateFilter) ([]models.HeatmapEntry, error) {
	records, err := b.records.GetRecords(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load anonymized trips: %w", err)
	}

	type zoneAccum struct {
		count     int
		durations []float64
		modes     map[string]int
		times     map[string]int
	}

	groups := make(map[string]*zoneAccum)
	for _, rec := range records {
		acc, ok := groups[rec.OriginZone]
		if !ok {
			acc = &zoneAccum{
				modes: make(map[string]int),
				times: make(map[string]int),
			}
			groups[rec.OriginZone] = acc
		}
		acc.count++
		acc.durations = append(acc.durations, float64(rec.DurationSeconds))
		acc.modes[rec.TravelMode]++
		acc.times[rec.StartTimeBucket]++
	}

	entries := make([]models.HeatmapEntry, 0, len(groups))
	for zoneID, acc := range groups {
		lat, lon, err := b.bucketer.ZoneCenter(zoneID)
		if err != nil {
			// Stored zone ids come from the bucketer, so this means a
			// corrupted row; skip it rather than failing the query
			log.Printf("[HeatmapBuilder] Skipping unparseable zone %q: %v", zoneID, err)
			continue
		}

		entries = append(entries, models.HeatmapEntry{
			ZoneID:             zoneID,
			CenterLat:          lat,
			CenterLon:          lon,
			CellRadiusMeters:   spatial.CellRadiusMeters(lat, lon, b.bucketer.GridSizeDegrees()),
			TripCount:          acc.count,
			AvgDurationSeconds: stats.Mean(acc.durations),
			ModeDistribution:   acc.modes,
			TimeHistogram:      acc.times,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TripCount != entries[j].TripCount {
			return entries[i].TripCount > entries[j].TripCount
		}
		return entries[i].ZoneID < entries[j].ZoneID
	})

	return entries, nil
}
