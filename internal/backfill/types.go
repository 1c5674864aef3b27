package backfill

import (
	"time"

	"github.com/fortuna/ceres/internal/ingest/nflverse"
)

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is one queued or finished load.
type Job struct {
	JobID           string             `json:"job_id"`
	Seasons         []int              `json:"seasons"`
	Datasets        []nflverse.Dataset `json:"datasets"`
	DryRun          bool               `json:"dry_run"`
	Status          JobStatus          `json:"status"`
	StatusMessage   string             `json:"status_message,omitempty"`
	ProgressCurrent int                `json:"progress_current"`
	ProgressTotal   int                `json:"progress_total"`
	LastError       string             `json:"last_error,omitempty"`
	Results         []nflverse.Result  `json:"results,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

// Copy returns a copy to prevent external mutation.
func (j *Job) Copy() *Job {
	if j == nil {
		return nil
	}
	cpy := *j
	cpy.Seasons = append([]int(nil), j.Seasons...)
	cpy.Datasets = append([]nflverse.Dataset(nil), j.Datasets...)
	cpy.Results = append([]nflverse.Result(nil), j.Results...)
	return &cpy
}

// JobSpec describes the work to be performed by the runner.
type JobSpec struct {
	Seasons  []int
	Datasets []nflverse.Dataset
	DryRun   bool
}

// Units is the number of season/dataset loads in the spec.
func (s JobSpec) Units() int {
	return len(s.Seasons) * len(s.Datasets)
}

// Reporter receives lifecycle callbacks from the runner.
type Reporter interface {
	OnJobStart(spec JobSpec)
	OnSeasonStart(season int, index int, total int)
	OnDatasetProcessed(result nflverse.Result)
	OnProgress(message string, current int, total int)
	OnJobComplete()
	OnJobError(err error)
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job   `json:"active_job,omitempty"`
	History   []*Job `json:"recent_jobs,omitempty"`
}
