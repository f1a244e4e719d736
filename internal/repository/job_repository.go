package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mobilitics/mobility-analytics-go/internal/models"
)

// ErrJobActive is returned when a new run is requested while another
// job is still queued or processing
var ErrJobActive = errors.New("an anonymization job is already active")

// JobRepository handles database operations for anonymization jobs and
// enforces the single-active-run invariant: concurrent orchestrator
// runs could double-count or race on the anonymized_at marker.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, reference, status, progress_percent,
	processed_count, suppressed_user_count, error_count, error_message,
	started_at, completed_at, created_at, updated_at`

// Create inserts a new queued job, refusing if another job is still
// active. The guard runs inside the insert statement so two concurrent
// callers cannot both acquire the run slot.
func (r *JobRepository) Create() (*models.AnonymizationJob, error) {
	reference := uuid.NewString()

	query := `
		INSERT INTO anonymization_jobs (reference, status)
		SELECT ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM anonymization_jobs WHERE status IN (?, ?)
		)
	`

	result, err := r.db.Exec(query,
		reference, models.JobStatusQueued,
		models.JobStatusQueued, models.JobStatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check job creation: %w", err)
	}
	if affected == 0 {
		return nil, ErrJobActive
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID retrieves a job by its internal id
func (r *JobRepository) GetByID(id int64) (*models.AnonymizationJob, error) {
	return r.getOne("SELECT "+jobColumns+" FROM anonymization_jobs WHERE id = ?", id)
}

// GetByReference retrieves a job by its external UUID handle
func (r *JobRepository) GetByReference(reference string) (*models.AnonymizationJob, error) {
	return r.getOne("SELECT "+jobColumns+" FROM anonymization_jobs WHERE reference = ?", reference)
}

// MarkProcessing transitions a job to processing
func (r *JobRepository) MarkProcessing(id int64) error {
	query := `
		UPDATE anonymization_jobs
		SET status = ?, started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.JobStatusProcessing, id); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	return nil
}

// SetProgress updates the progress percentage of a running job
func (r *JobRepository) SetProgress(id int64, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	query := `
		UPDATE anonymization_jobs
		SET progress_percent = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, percent, id); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// MarkCompleted records the run outcome and releases the run slot
func (r *JobRepository) MarkCompleted(id int64, processed, suppressedUsers, errorCount int) error {
	query := `
		UPDATE anonymization_jobs
		SET status = ?, progress_percent = 100,
		    processed_count = ?, suppressed_user_count = ?, error_count = ?,
		    completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.JobStatusCompleted, processed, suppressedUsers, errorCount, id); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason and releases the run slot.
// Failed runs are retried only by an external scheduler; previously
// committed anonymized rows stay untouched.
func (r *JobRepository) MarkFailed(id int64, message string) error {
	query := `
		UPDATE anonymization_jobs
		SET status = ?, error_message = ?,
		    completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.JobStatusFailed, message, id); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func (r *JobRepository) getOne(query string, arg interface{}) (*models.AnonymizationJob, error) {
	var j models.AnonymizationJob
	var startedAt, completedAt sql.NullTime

	err := r.db.QueryRow(query, arg).Scan(
		&j.ID, &j.Reference, &j.Status, &j.ProgressPercent,
		&j.ProcessedCount, &j.SuppressedUserCount, &j.ErrorCount, &j.ErrorMessage,
		&startedAt, &completedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}
