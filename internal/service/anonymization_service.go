package service

import (
	"context"
	"log"

	"github.com/mobilitics/mobility-analytics-go/internal/anonymizer"
	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
)

// AnonymizationService owns job lifecycle for orchestrator runs. The
// job store is the single-run gate: StartJob fails with ErrJobActive
// while another run is queued or processing.
type AnonymizationService struct {
	jobs         *repository.JobRepository
	orchestrator *anonymizer.Orchestrator
}

// NewAnonymizationService creates a new anonymization service
func NewAnonymizationService(jobs *repository.JobRepository, orchestrator *anonymizer.Orchestrator) *AnonymizationService {
	return &AnonymizationService{jobs: jobs, orchestrator: orchestrator}
}

// StartJob creates a queued job and starts the orchestrator run
// asynchronously. Callers poll GetJob for progress and completion.
func (s *AnonymizationService) StartJob() (*models.AnonymizationJob, error) {
	job, err := s.jobs.Create()
	if err != nil {
		return nil, err
	}

	go s.runJob(job.ID)

	return job, nil
}

// GetJob retrieves a job by its external reference
func (s *AnonymizationService) GetJob(reference string) (*models.AnonymizationJob, error) {
	return s.jobs.GetByReference(reference)
}

// runJob drives one orchestrator run and records its outcome. A store
// failure marks the job failed with the reason; retry is left to an
// external scheduler.
func (s *AnonymizationService) runJob(jobID int64) {
	log.Printf("[AnonymizationService] Starting job %d", jobID)

	if err := s.jobs.MarkProcessing(jobID); err != nil {
		log.Printf("[AnonymizationService] Failed to mark job %d processing: %v", jobID, err)
		return
	}

	lastPercent := -1
	progress := func(done, total int) {
		if total == 0 {
			return
		}
		percent := done * 100 / total
		// Only hit the job store when the percentage actually moves
		if percent != lastPercent {
			lastPercent = percent
			if err := s.jobs.SetProgress(jobID, percent); err != nil {
				log.Printf("[AnonymizationService] Failed to update progress for job %d: %v", jobID, err)
			}
		}
	}

	result, err := s.orchestrator.Run(context.Background(), progress)
	if err != nil {
		log.Printf("[AnonymizationService] Job %d failed: %v", jobID, err)
		if mErr := s.jobs.MarkFailed(jobID, err.Error()); mErr != nil {
			log.Printf("[AnonymizationService] Failed to mark job %d failed: %v", jobID, mErr)
		}
		return
	}

	if err := s.jobs.MarkCompleted(jobID, result.ProcessedCount, result.SuppressedUserCount, result.ErrorCount); err != nil {
		log.Printf("[AnonymizationService] Failed to mark job %d completed: %v", jobID, err)
		return
	}

	log.Printf("[AnonymizationService] Job %d completed: processed=%d suppressed_users=%d errors=%d",
		jobID, result.ProcessedCount, result.SuppressedUserCount, result.ErrorCount)
}
