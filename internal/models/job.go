package models

import "time"

// AnonymizationJob tracks one orchestrator batch run. At most one job
// may be queued or processing at a time; the repository enforces this
// when creating a new job.
type AnonymizationJob struct {
	ID        int64  `json:"id" db:"id"`
	Reference string `json:"reference" db:"reference"` // External UUID handle

	Status          string `json:"status" db:"status"`
	ProgressPercent int    `json:"progress_percent" db:"progress_percent"`

	// Run outcome
	ProcessedCount      int    `json:"processed_count" db:"processed_count"`
	SuppressedUserCount int    `json:"suppressed_user_count" db:"suppressed_user_count"`
	ErrorCount          int    `json:"error_count" db:"error_count"`
	ErrorMessage        string `json:"error_message,omitempty" db:"error_message"`

	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// JobStatus constants
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Active reports whether the job still holds the single-run slot
func (j *AnonymizationJob) Active() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusProcessing
}
