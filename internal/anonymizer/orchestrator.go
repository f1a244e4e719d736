package anonymizer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mobilitics/mobility-analytics-go/internal/bucketing"
	"github.com/mobilitics/mobility-analytics-go/internal/config"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
)

// Result summarizes one orchestrator run
type Result struct {
	ProcessedCount      int `json:"processed_count"`
	SuppressedUserCount int `json:"suppressed_user_count"`
	ErrorCount          int `json:"error_count"`
}

// Orchestrator owns the write path into the anonymized trip store. It
// selects eligible raw trips, enforces the k-anonymity gate per user
// group, buckets and pseudonymizes each qualifying trip, and marks the
// sources processed. At most one run may be active at a time; the job
// store enforces that before Run is invoked.
type Orchestrator struct {
	rawTrips      *repository.RawTripRepository
	records       *repository.AnonymizedTripRepository
	bucketer      *bucketing.Bucketer
	pseudonymizer *bucketing.Pseudonymizer
	cfg           config.AnonymizationConfig
}

// NewOrchestrator creates an anonymization orchestrator
func NewOrchestrator(
	rawTrips *repository.RawTripRepository,
	records *repository.AnonymizedTripRepository,
	bucketer *bucketing.Bucketer,
	pseudonymizer *bucketing.Pseudonymizer,
	cfg config.AnonymizationConfig,
) *Orchestrator {
	return &Orchestrator{
		rawTrips:      rawTrips,
		records:       records,
		bucketer:      bucketer,
		pseudonymizer: pseudonymizer,
		cfg:           cfg,
	}
}

// Run executes one anonymization batch. Per-record transform failures
// are recovered locally (logged, counted, skipped); store failures
// abort the run. The optional progress callback receives (done, total)
// after each record.
func (o *Orchestrator) Run(ctx context.Context, progress func(done, total int)) (*Result, error) {
	trips, err := o.rawTrips.FetchEligibleTrips(models.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible trips: %w", err)
	}

	groups := groupByUser(trips)
	log.Printf("[Orchestrator] Fetched %d eligible trips across %d users", len(trips), len(groups))

	var qualifying []models.RawTrip
	var suppressedIDs []int64
	suppressedUsers := 0

	// k-anonymity gate: user groups below the threshold produce no
	// anonymized records at all. Suppression is the intended privacy
	// outcome, not an error; suppressed trips are still marked so they
	// are not refetched every run.
	for _, group := range groups {
		if len(group) < o.cfg.KThreshold {
			suppressedUsers++
			for _, t := range group {
				suppressedIDs = append(suppressedIDs, t.ID)
			}
			continue
		}
		qualifying = append(qualifying, group...)
	}

	total := len(qualifying)
	var mu sync.Mutex
	var processedIDs []int64
	errorCount := 0
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	workers := o.cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, trip := range qualifying {
		trip := trip
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec, err := o.transformTrip(&trip)
			if err != nil {
				// RecordTransformError: skip the record, keep the batch
				log.Printf("[Orchestrator] Skipping trip %d: %v", trip.ID, err)
				mu.Lock()
				errorCount++
				done++
				if progress != nil {
					progress(done, total)
				}
				mu.Unlock()
				return nil
			}

			if err := o.records.Insert(rec); err != nil {
				// Store failure is fatal to the run
				return err
			}

			mu.Lock()
			processedIDs = append(processedIDs, trip.ID)
			done++
			if progress != nil {
				progress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("anonymization batch aborted: %w", err)
	}

	// Mark processed and suppressed trips in one bulk pass. Failed
	// trips stay unmarked and are retried on the next run.
	marked := append(append([]int64{}, processedIDs...), suppressedIDs...)
	if err := o.rawTrips.MarkAnonymized(marked, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to mark trips processed: %w", err)
	}

	result := &Result{
		ProcessedCount:      len(processedIDs),
		SuppressedUserCount: suppressedUsers,
		ErrorCount:          errorCount,
	}
	log.Printf("[Orchestrator] Run finished: processed=%d suppressed_users=%d errors=%d",
		result.ProcessedCount, result.SuppressedUserCount, result.ErrorCount)
	return result, nil
}

// transformTrip buckets and pseudonymizes one raw trip. The returned
// record carries no raw coordinate, no raw timestamp and no reference
// to the raw trip id.
func (o *Orchestrator) transformTrip(t *models.RawTrip) (*models.AnonymizedTripRecord, error) {
	if t.StartTime <= 0 || t.EndTime < t.StartTime {
		return nil, fmt.Errorf("malformed time range [%d, %d]", t.StartTime, t.EndTime)
	}
	if t.DurationSeconds < 0 || t.DistanceMeters < 0 {
		return nil, fmt.Errorf("negative duration or distance")
	}

	originZone, err := o.bucketer.ZoneID(t.OriginLat, t.OriginLon)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	destZone, err := o.bucketer.ZoneID(t.DestLat, t.DestLon)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	start := time.Unix(t.StartTime, 0).UTC()
	end := time.Unix(t.EndTime, 0).UTC()

	return &models.AnonymizedTripRecord{
		PseudonymID:     o.pseudonymizer.Pseudonymize(t.UserID),
		TripDate:        o.bucketer.TripDate(start),
		OriginZone:      originZone,
		DestZone:        destZone,
		StartTimeBucket: o.bucketer.TimeBucket(start),
		EndTimeBucket:   o.bucketer.TimeBucket(end),
		DurationBucket:  o.bucketer.DurationBucket(float64(t.DurationSeconds)),
		DistanceBucket:  o.bucketer.DistanceBucket(t.DistanceMeters),
		CompanionBucket: bucketing.CompanionBucket(t.CompanionCount),
		DurationSeconds: t.DurationSeconds,
		DistanceMeters:  t.DistanceMeters,
		TravelMode:      t.TravelMode,
		Purpose:         t.Purpose,
	}, nil
}

// groupByUser buckets trips by their raw user id
func groupByUser(trips []models.RawTrip) map[string][]models.RawTrip {
	groups := make(map[string][]models.RawTrip)
	for _, t := range trips {
		groups[t.UserID] = append(groups[t.UserID], t)
	}
	return groups
}
