package service

import (
	"fmt"

	"github.com/mobilitics/mobility-analytics-go/internal/aggregator"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/privacy"
)

// AggregateService runs the read-only aggregate builders and applies
// differential-privacy noise to the disclosed count and frequency
// fields. Noise is drawn fresh per export; derived totals and averages
// are released un-noised, a documented residual disclosure risk.
type AggregateService struct {
	odBuilder      *aggregator.ODMatrixBuilder
	heatmapBuilder *aggregator.HeatmapBuilder
	chainMiner     *aggregator.ChainMiner
	epsilon        float64
}

// NewAggregateService creates a new aggregate service
func NewAggregateService(
	odBuilder *aggregator.ODMatrixBuilder,
	heatmapBuilder *aggregator.HeatmapBuilder,
	chainMiner *aggregator.ChainMiner,
	epsilon float64,
) *AggregateService {
	return &AggregateService{
		odBuilder:      odBuilder,
		heatmapBuilder: heatmapBuilder,
		chainMiner:     chainMiner,
		epsilon:        epsilon,
	}
}

// ODMatrix builds the OD matrix and noises each entry's trip count
func (s *AggregateService) ODMatrix(filter models.AggregateFilter) ([]models.ODMatrixEntry, error) {
	entries, err := s.odBuilder.Build(filter)
	if err != nil {
		return nil, err
	}

	injector, err := privacy.NewNoiseInjector(s.epsilon)
	if err != nil {
		return nil, fmt.Errorf("failed to create noise injector: %w", err)
	}
	for i := range entries {
		entries[i].TripCount = injector.NoisyCount(entries[i].TripCount)
	}
	return entries, nil
}

// Heatmap builds the per-zone heatmap and noises each entry's trip count
func (s *AggregateService) Heatmap(filter models.AggregateFilter) ([]models.HeatmapEntry, error) {
	entries, err := s.heatmapBuilder.Build(filter)
	if err != nil {
		return nil, err
	}

	injector, err := privacy.NewNoiseInjector(s.epsilon)
	if err != nil {
		return nil, fmt.Errorf("failed to create noise injector: %w", err)
	}
	for i := range entries {
		entries[i].TripCount = injector.NoisyCount(entries[i].TripCount)
	}
	return entries, nil
}

// TripChains mines chain patterns and noises the disclosed pattern
// frequencies. The transition matrix is a total derived from the
// pre-noise frequencies and is released as computed.
func (s *AggregateService) TripChains(filter models.AggregateFilter) (*models.ChainMiningResult, error) {
	result, err := s.chainMiner.Build(filter)
	if err != nil {
		return nil, err
	}

	injector, err := privacy.NewNoiseInjector(s.epsilon)
	if err != nil {
		return nil, fmt.Errorf("failed to create noise injector: %w", err)
	}
	for i := range result.Patterns {
		result.Patterns[i].Frequency = injector.NoisyCount(result.Patterns[i].Frequency)
	}
	return result, nil
}
