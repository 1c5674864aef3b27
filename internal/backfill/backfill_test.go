package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortuna/ceres/internal/ingest/nflverse"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeIngester struct {
	mu     sync.Mutex
	calls  []string
	failOn string
	skip   int
}

func (f *fakeIngester) Ingest(_ context.Context, d nflverse.Dataset, season int, dryRun bool) (nflverse.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%d", d, season)
	f.calls = append(f.calls, key)
	if key == f.failOn {
		return nflverse.Result{}, errors.New("boom")
	}
	if season == f.skip {
		return nflverse.Result{}, fmt.Errorf("%w: %s", nflverse.ErrNotPublished, key)
	}
	res := nflverse.Result{Dataset: d, Season: season, Parsed: 10}
	if !dryRun {
		res.Written = 10
	}
	return res, nil
}

type countingReporter struct {
	seasons, datasets, completes, errs int
}

func (r *countingReporter) OnJobStart(JobSpec) {}
func (r *countingReporter) OnSeasonStart(int, int, int) { r.seasons++ }
func (r *countingReporter) OnDatasetProcessed(nflverse.Result) { r.datasets++ }
func (r *countingReporter) OnProgress(string, int, int) {}
func (r *countingReporter) OnJobComplete() { r.completes++ }
func (r *countingReporter) OnJobError(error) { r.errs++ }

func TestRunner_RunsEverySeasonDataset(t *testing.T) {
	ing := &fakeIngester{}
	rep := &countingReporter{}
	spec := JobSpec{Seasons: []int{2022, 2023}, Datasets: nflverse.AllDatasets()}

	if err := NewRunner(ing).Run(context.Background(), spec, rep); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(ing.calls) != 6 {
		t.Errorf("calls = %v, want 6", ing.calls)
	}
	if rep.seasons != 2 || rep.datasets != 6 || rep.completes != 1 || rep.errs != 0 {
		t.Errorf("reporter = %+v", rep)
	}
}

func TestRunner_SkipsUnpublishedSeason(t *testing.T) {
	ing := &fakeIngester{skip: 2025}
	rep := &countingReporter{}
	spec := JobSpec{Seasons: []int{2024, 2025}, Datasets: []nflverse.Dataset{nflverse.DatasetStats}}

	if err := NewRunner(ing).Run(context.Background(), spec, rep); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rep.datasets != 1 || rep.completes != 1 {
		t.Errorf("reporter = %+v", rep)
	}
}

func TestRunner_StopsOnError(t *testing.T) {
	ing := &fakeIngester{failOn: "rosters/2022"}
	rep := &countingReporter{}
	spec := JobSpec{Seasons: []int{2022, 2023}, Datasets: nflverse.AllDatasets()}

	if err := NewRunner(ing).Run(context.Background(), spec, rep); err == nil {
		t.Fatal("expected error")
	}
	if len(ing.calls) != 2 || rep.errs != 1 || rep.completes != 0 {
		t.Errorf("calls = %v, reporter = %+v", ing.calls, rep)
	}
}

func TestRunner_EmptySpec(t *testing.T) {
	if err := NewRunner(&fakeIngester{}).Run(context.Background(), JobSpec{}, nil); err == nil {
		t.Fatal("expected error for empty spec")
	}
}

func waitForStatus(t *testing.T, svc *Service, id string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := svc.Job(id); ok && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := svc.Job(id)
	t.Fatalf("job %s did not reach %s: %+v", id, want, job)
	return nil
}

func TestService_EnqueueRunsAndRefits(t *testing.T) {
	logger, _ := test.NewNullLogger()
	refit := make(chan []int, 1)
	svc := NewService(NewRunner(&fakeIngester{}), func(_ context.Context, seasons []int) error {
		refit <- seasons
		return nil
	}, logger)
	svc.Start()
	defer svc.Shutdown(context.Background())

	job, err := svc.Enqueue(context.Background(), Request{Seasons: []int{2023, 2022}})
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	if job.ProgressTotal != 6 || job.Seasons[0] != 2022 {
		t.Errorf("unexpected queued job: %+v", job)
	}

	done := waitForStatus(t, svc, job.JobID, JobStatusCompleted)
	if done.ProgressCurrent != 6 || len(done.Results) != 6 || done.CompletedAt == nil {
		t.Errorf("unexpected completed job: %+v", done)
	}

	select {
	case seasons := <-refit:
		if len(seasons) != 2 {
			t.Errorf("refit seasons = %v", seasons)
		}
	case <-time.After(time.Second):
		t.Fatal("refit hook not called")
	}

	status, _ := svc.GetStatus(context.Background())
	if status.ActiveJob != nil || len(status.History) != 1 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestService_DryRunSkipsRefit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var called atomic.Bool
	svc := NewService(NewRunner(&fakeIngester{}), func(context.Context, []int) error {
		called.Store(true)
		return nil
	}, logger)
	svc.Start()
	defer svc.Shutdown(context.Background())

	job, err := svc.Enqueue(context.Background(), Request{Seasons: []int{2023}, DryRun: true})
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	waitForStatus(t, svc, job.JobID, JobStatusCompleted)
	if called.Load() {
		t.Error("refit called for dry run")
	}
}

func TestService_FailedJob(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewService(NewRunner(&fakeIngester{failOn: "stats/2023"}), nil, logger)
	svc.Start()
	defer svc.Shutdown(context.Background())

	job, err := svc.Enqueue(context.Background(), Request{Seasons: []int{2023}})
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	failed := waitForStatus(t, svc, job.JobID, JobStatusFailed)
	if failed.LastError == "" {
		t.Error("expected last_error")
	}
}

func TestService_RejectsBadRequest(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewService(NewRunner(&fakeIngester{}), nil, logger)

	if _, err := svc.Enqueue(context.Background(), Request{}); err == nil {
		t.Error("expected error for no seasons")
	}
	if _, err := svc.Enqueue(context.Background(), Request{Seasons: []int{1950}}); err == nil {
		t.Error("expected error for out-of-range season")
	}
}
