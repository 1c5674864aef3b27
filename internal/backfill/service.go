package backfill

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fortuna/ceres/internal/ingest/nflverse"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request represents a backfill invocation request.
type Request struct {
	Seasons  []int
	Datasets []nflverse.Dataset
	DryRun   bool
}

func (r Request) validate() error {
	if len(r.Seasons) == 0 {
		return fmt.Errorf("backfill requires at least one season")
	}
	for _, s := range r.Seasons {
		if s < 1999 || s > 2100 {
			return fmt.Errorf("season %d out of range", s)
		}
	}
	return nil
}

// AfterRun is called once a job that wrote data has completed.
type AfterRun func(ctx context.Context, seasons []int) error

// Service queues jobs in memory and runs them one at a time.
type Service struct {
	runner   *Runner
	afterRun AfterRun

	historyLimit int

	mu      sync.Mutex
	jobs    []*Job
	pending chan *Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logrus.Entry
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(runner *Runner, afterRun AfterRun, logger logrus.FieldLogger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		runner:       runner,
		afterRun:     afterRun,
		historyLimit: 10,
		pending:      make(chan *Job, 16),
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.WithField("component", "backfill"),
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops workers and waits for completion.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue creates a new job from the provided request.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(req.Datasets) == 0 {
		req.Datasets = nflverse.AllDatasets()
	}

	seasons := append([]int(nil), req.Seasons...)
	sort.Ints(seasons)

	now := time.Now().UTC()
	job := &Job{
		JobID:         uuid.NewString(),
		Seasons:       seasons,
		Datasets:      req.Datasets,
		DryRun:        req.DryRun,
		Status:        JobStatusQueued,
		StatusMessage: "Queued",
		ProgressTotal: JobSpec{Seasons: seasons, Datasets: req.Datasets}.Units(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	select {
	case s.pending <- job:
	case <-ctx.Done():
		s.update(job.JobID, func(j *Job) {
			j.Status = JobStatusCancelled
			j.StatusMessage = "Enqueue cancelled"
		})
		return nil, ctx.Err()
	default:
		s.update(job.JobID, func(j *Job) {
			j.Status = JobStatusFailed
			j.StatusMessage = "Queue full"
		})
		return nil, fmt.Errorf("backfill queue is full")
	}

	s.logger.WithField("job_id", job.JobID).Infof("Queued backfill for seasons %v", seasons)
	return job.Copy(), nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(_ context.Context) (*StatusSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &StatusSummary{}
	for i := len(s.jobs) - 1; i >= 0; i-- {
		job := s.jobs[i]
		if job.Status == JobStatusRunning && summary.ActiveJob == nil {
			summary.ActiveJob = job.Copy()
		}
		if len(summary.History) < s.historyLimit {
			summary.History = append(summary.History, job.Copy())
		}
	}
	return summary, nil
}

// Job returns a copy of one job by id.
func (s *Service) Job(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.JobID == id {
			return job.Copy(), true
		}
	}
	return nil, false
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.pending:
			s.executeJob(job)
		}
	}
}

func (s *Service) executeJob(job *Job) {
	spec := JobSpec{Seasons: job.Seasons, Datasets: job.Datasets, DryRun: job.DryRun}
	log := s.logger.WithField("job_id", job.JobID)

	s.update(job.JobID, func(j *Job) {
		now := time.Now().UTC()
		j.Status = JobStatusRunning
		j.StatusMessage = "Starting job..."
		j.StartedAt = &now
	})

	reporter := &jobReporter{service: s, jobID: job.JobID, logger: log}
	if err := s.runner.Run(s.ctx, spec, reporter); err != nil {
		status := JobStatusFailed
		if s.ctx.Err() != nil {
			status = JobStatusCancelled
		}
		s.finish(job.JobID, status, "Job failed", err)
		log.WithError(err).Error("Backfill failed")
		return
	}

	if !spec.DryRun && s.afterRun != nil {
		if err := s.afterRun(s.ctx, spec.Seasons); err != nil {
			log.WithError(err).Warn("⚠️  Post-backfill refit failed")
		}
	}

	s.finish(job.JobID, JobStatusCompleted, "Job completed", nil)
	log.Info("✓ Backfill completed")
}

func (s *Service) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.JobID == id {
			fn(job)
			job.UpdatedAt = time.Now().UTC()
			return
		}
	}
}

func (s *Service) finish(id string, status JobStatus, message string, lastErr error) {
	s.update(id, func(j *Job) {
		now := time.Now().UTC()
		j.Status = status
		j.StatusMessage = message
		j.CompletedAt = &now
		if lastErr != nil {
			j.LastError = lastErr.Error()
		}
	})
}

type jobReporter struct {
	service *Service
	jobID   string
	logger  logrus.FieldLogger
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	r.service.update(r.jobID, func(j *Job) {
		j.ProgressTotal = spec.Units()
		j.StatusMessage = "Job starting"
	})
}

func (r *jobReporter) OnSeasonStart(season int, index int, total int) {
	msg := fmt.Sprintf("Processing season %d (%d/%d)", season, index+1, total)
	r.logger.Info(msg)
	r.service.update(r.jobID, func(j *Job) { j.StatusMessage = msg })
}

func (r *jobReporter) OnDatasetProcessed(result nflverse.Result) {
	r.service.update(r.jobID, func(j *Job) { j.Results = append(j.Results, result) })
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	r.service.update(r.jobID, func(j *Job) {
		j.StatusMessage = message
		j.ProgressCurrent = current
		if total > 0 {
			j.ProgressTotal = total
		}
	})
}

func (r *jobReporter) OnJobComplete() {
	r.service.update(r.jobID, func(j *Job) {
		j.ProgressCurrent = j.ProgressTotal
		j.StatusMessage = "Job complete"
	})
}

func (r *jobReporter) OnJobError(err error) {
	r.logger.WithError(err).Warn("⚠️  Backfill step failed")
}
