package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortuna/ceres/internal/ingest/nflverse"
)

// Ingester loads one dataset for one season.
type Ingester interface {
	Ingest(ctx context.Context, dataset nflverse.Dataset, season int, dryRun bool) (nflverse.Result, error)
}

// Runner executes backfill specs using the nflverse ingester.
type Runner struct {
	ingester Ingester
}

// NewRunner constructs a runner.
func NewRunner(ingester Ingester) *Runner {
	return &Runner{ingester: ingester}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
// A season that has not been published yet is reported and skipped.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) error {
	if reporter != nil {
		reporter.OnJobStart(spec)
	}

	if len(spec.Seasons) == 0 || len(spec.Datasets) == 0 {
		err := fmt.Errorf("job needs at least one season and one dataset")
		if reporter != nil {
			reporter.OnJobError(err)
		}
		return err
	}

	if spec.DryRun && reporter != nil {
		reporter.OnProgress("Dry-run mode: files are downloaded and parsed, nothing is written", 0, spec.Units())
	}

	total := spec.Units()
	done := 0
	for idx, season := range spec.Seasons {
		if reporter != nil {
			reporter.OnSeasonStart(season, idx, len(spec.Seasons))
		}

		for _, dataset := range spec.Datasets {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := r.ingester.Ingest(ctx, dataset, season, spec.DryRun)
			done++
			if errors.Is(err, nflverse.ErrNotPublished) {
				if reporter != nil {
					reporter.OnProgress(fmt.Sprintf("⚠️  %s %d not published, skipping", dataset, season), done, total)
				}
				continue
			}
			if err != nil {
				err = fmt.Errorf("%s %d: %w", dataset, season, err)
				if reporter != nil {
					reporter.OnJobError(err)
				}
				return err
			}

			if reporter != nil {
				reporter.OnDatasetProcessed(result)
				reporter.OnProgress(fmt.Sprintf("✓ %s %d complete", dataset, season), done, total)
			}
		}
	}

	if reporter != nil {
		reporter.OnJobComplete()
	}

	return nil
}
