package aggregator

import (
	"fmt"
	"sort"

	"github.com/mobilitics/mobility-analytics-go/internal/bucketing"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
	"github.com/mobilitics/mobility-analytics-go/internal/stats"
)

// ODMatrixBuilder derives the origin-destination matrix from the
// anonymized trip store. Read-only; results are recomputed per query
// and never persisted.
type ODMatrixBuilder struct {
	records *repository.AnonymizedTripRepository
}

// NewODMatrixBuilder creates an OD matrix builder
func NewODMatrixBuilder(records *repository.AnonymizedTripRepository) *ODMatrixBuilder {
	return &ODMatrixBuilder{records: records}
}

type odKey struct {
	origin     string
	dest       string
	timeBucket string
}

// Build groups anonymized trips by (origin, destination), or by
// (origin, destination, start bucket) at zone_time aggregation, and
// computes per-group counts and approximations. Distance totals and
// duration averages come from bucket midpoints since the raw values
// are positional and were discarded.
func (b *ODMatrixBuilder) Build(filter models.AggregateFilter) ([]models.ODMatrixEntry, error) {
	records, err := b.records.GetRecords(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load anonymized trips: %w", err)
	}

	byTime := filter.AggregationLevel == models.AggregationZoneTime

	type odAccum struct {
		count             int
		distanceMidpoints []float64
		durationMidpoints []float64
		modes             map[string]int
		times             map[string]int
	}

	groups := make(map[odKey]*odAccum)
	for _, rec := range records {
		key := odKey{origin: rec.OriginZone, dest: rec.DestZone}
		if byTime {
			key.timeBucket = rec.StartTimeBucket
		}

		acc, ok := groups[key]
		if !ok {
			acc = &odAccum{
				modes: make(map[string]int),
				times: make(map[string]int),
			}
			groups[key] = acc
		}

		acc.count++
		acc.modes[rec.TravelMode]++
		acc.times[rec.StartTimeBucket]++

		if mid, err := bucketing.RangeBucketMidpoint(rec.DistanceBucket); err == nil {
			acc.distanceMidpoints = append(acc.distanceMidpoints, mid)
		}
		if mid, err := bucketing.RangeBucketMidpoint(rec.DurationBucket); err == nil {
			acc.durationMidpoints = append(acc.durationMidpoints, mid)
		}
	}

	entries := make([]models.ODMatrixEntry, 0, len(groups))
	for key, acc := range groups {
		entries = append(entries, models.ODMatrixEntry{
			OriginZone:          key.origin,
			DestZone:            key.dest,
			TimeBucket:          key.timeBucket,
			TripCount:           acc.count,
			TotalDistanceMeters: stats.Sum(acc.distanceMidpoints),
			AvgDurationSeconds:  stats.Mean(acc.durationMidpoints),
			ModeDistribution:    acc.modes,
			TimeDistribution:    acc.times,
		})
	}

	// Descending trip count, ties broken by ascending (origin, dest) pair
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TripCount != entries[j].TripCount {
			return entries[i].TripCount > entries[j].TripCount
		}
		if entries[i].OriginZone != entries[j].OriginZone {
			return entries[i].OriginZone < entries[j].OriginZone
		}
		if entries[i].DestZone != entries[j].DestZone {
			return entries[i].DestZone < entries[j].DestZone
		}
		return entries[i].TimeBucket < entries[j].TimeBucket
	})

	return entries, nil
}
