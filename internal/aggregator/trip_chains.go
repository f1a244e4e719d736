package aggregator

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/mobilitics/mobility-analytics-go/internal/config"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
)

// DefaultMaxPatternLength caps the number of hops per pattern when the
// caller does not specify one
const DefaultMaxPatternLength = 10

// ChainMiner extracts trip-chain patterns from the anonymized trip
// store. A chain is one pseudonymous user's time-ordered trips with no
// gap between consecutive start times exceeding the configured window;
// a pattern is the ordered list of zone hops within one chain. Patterns
// are disclosed only above the k-anonymity threshold.
type ChainMiner struct {
	records *repository.AnonymizedTripRepository
	cfg     config.AnonymizationConfig
}

// NewChainMiner creates a trip-chain pattern miner
func NewChainMiner(records *repository.AnonymizedTripRepository, cfg config.AnonymizationConfig) *ChainMiner {
	return &ChainMiner{records: records, cfg: cfg}
}

// chain is one segmented sequence of a single user's trips
type chain struct {
	hops          []string
	totalDuration float64
	totalDistance float64
	modes         map[string]bool
	purposes      map[string]bool
}

// Build mines chain patterns over the filtered date range. The
// disclosure gate is max(minFrequency, K): a pattern backed by fewer
// chains than the k-anonymity threshold never appears in the output,
// nor in the transition matrix.
func (m *ChainMiner) Build(filter models.AggregateFilter) (*models.ChainMiningResult, error) {
	records, err := m.records.GetRecords(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load anonymized trips: %w", err)
	}

	maxLen := filter.MaxPatternLength
	if maxLen <= 0 {
		maxLen = DefaultMaxPatternLength
	}
	minFreq := filter.MinFrequency
	if minFreq < m.cfg.KThreshold {
		minFreq = m.cfg.KThreshold
	}

	chains := m.segment(records, maxLen)

	type patternAccum struct {
		frequency     int
		sumDuration   float64
		sumDistance   float64
		modes         map[string]bool
		purposes      map[string]bool
		hops          []string
	}

	patterns := make(map[string]*patternAccum)
	for _, c := range chains {
		key := strings.Join(c.hops, "|")
		acc, ok := patterns[key]
		if !ok {
			acc = &patternAccum{
				modes:    make(map[string]bool),
				purposes: make(map[string]bool),
				hops:     c.hops,
			}
			patterns[key] = acc
		}
		acc.frequency++
		acc.sumDuration += c.totalDuration
		acc.sumDistance += c.totalDistance
		for mode := range c.modes {
			acc.modes[mode] = true
		}
		for purpose := range c.purposes {
			acc.purposes[purpose] = true
		}
	}

	result := &models.ChainMiningResult{
		Patterns:    []models.TripChainPattern{},
		Transitions: []models.ZoneTransition{},
	}
	transitions := make(map[[2]string]int)

	for key, acc := range patterns {
		if acc.frequency < minFreq {
			// Below the anonymity set: silent suppression, no trace in
			// any output including the transition matrix
			continue
		}

		result.Patterns = append(result.Patterns, models.TripChainPattern{
			Pattern:            key,
			Frequency:          acc.frequency,
			AvgDurationSeconds: acc.sumDuration / float64(acc.frequency),
			AvgDistanceMeters:  acc.sumDistance / float64(acc.frequency),
			Modes:              sortedKeys(acc.modes),
			Purposes:           sortedKeys(acc.purposes),
		})

		for _, hop := range acc.hops {
			parts := strings.SplitN(hop, "->", 2)
			if len(parts) != 2 {
				continue
			}
			transitions[[2]string{parts[0], parts[1]}] += acc.frequency
		}
	}

	for edge, count := range transitions {
		result.Transitions = append(result.Transitions, models.ZoneTransition{
			FromZone: edge[0],
			ToZone:   edge[1],
			Count:    count,
		})
	}

	sort.Slice(result.Patterns, func(i, j int) bool {
		if result.Patterns[i].Frequency != result.Patterns[j].Frequency {
			return result.Patterns[i].Frequency > result.Patterns[j].Frequency
		}
		return result.Patterns[i].Pattern < result.Patterns[j].Pattern
	})
	sort.Slice(result.Transitions, func(i, j int) bool {
		if result.Transitions[i].Count != result.Transitions[j].Count {
			return result.Transitions[i].Count > result.Transitions[j].Count
		}
		if result.Transitions[i].FromZone != result.Transitions[j].FromZone {
			return result.Transitions[i].FromZone < result.Transitions[j].FromZone
		}
		return result.Transitions[i].ToZone < result.Transitions[j].ToZone
	})

	return result, nil
}

// segment splits each user's time-ordered records into chains whenever
// the gap between consecutive trip start times exceeds the configured
// window. Only chains of at least two trips qualify; longer chains are
// truncated to maxLen hops.
func (m *ChainMiner) segment(records []models.AnonymizedTripRecord, maxLen int) []chain {
	gap := time.Duration(m.cfg.ChainGapMinutes) * time.Minute

	var chains []chain
	var current []models.AnonymizedTripRecord
	var currentUser string
	var prevStart time.Time

	flush := func() {
		if len(current) >= 2 {
			chains = append(chains, buildChain(current, maxLen))
		}
		current = nil
	}

	for _, rec := range records {
		start, err := bucketTime(rec.TripDate, rec.StartTimeBucket)
		if err != nil {
			log.Printf("[ChainMiner] Skipping record with unparseable time %q %q: %v",
				rec.TripDate, rec.StartTimeBucket, err)
			continue
		}

		if rec.PseudonymID != currentUser || start.Sub(prevStart) > gap {
			flush()
			currentUser = rec.PseudonymID
		}
		current = append(current, rec)
		prevStart = start
	}
	flush()

	return chains
}

// buildChain collects hops and real per-trip totals for one chain
func buildChain(records []models.AnonymizedTripRecord, maxLen int) chain {
	if len(records) > maxLen {
		records = records[:maxLen]
	}

	c := chain{
		modes:    make(map[string]bool),
		purposes: make(map[string]bool),
	}
	for _, rec := range records {
		c.hops = append(c.hops, rec.OriginZone+"->"+rec.DestZone)
		c.totalDuration += float64(rec.DurationSeconds)
		c.totalDistance += rec.DistanceMeters
		if rec.TravelMode != "" {
			c.modes[rec.TravelMode] = true
		}
		if rec.Purpose != "" {
			c.purposes[rec.Purpose] = true
		}
	}
	return c
}

// bucketTime combines the day-granular date and the binned time-of-day
// bucket into a comparable instant
func bucketTime(tripDate, bucket string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04", tripDate+" "+bucket)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
