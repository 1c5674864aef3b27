// Package bootstrap wires the projection engine from configuration. It is
// shared by the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/config"
	"github.com/fortuna/ceres/internal/engine"
	"github.com/fortuna/ceres/internal/identity"
	"github.com/fortuna/ceres/internal/scoring"
	"github.com/fortuna/ceres/internal/store"
	"github.com/fortuna/ceres/internal/store/repository"
	"github.com/sirupsen/logrus"
)

// Repositories groups the Postgres repositories.
type Repositories struct {
	Stats     *repository.StatsRepository
	Rosters   *repository.RosterRepository
	Schedules *repository.ScheduleRepository
	Mappings  *repository.MappingRepository
}

// NewRepositories builds every repository over db.
func NewRepositories(db *store.Database) Repositories {
	return Repositories{
		Stats:     repository.NewStatsRepository(db),
		Rosters:   repository.NewRosterRepository(db),
		Schedules: repository.NewScheduleRepository(db),
		Mappings:  repository.NewMappingRepository(db),
	}
}

// AvailabilityConfig maps the runtime config onto the availability source.
func AvailabilityConfig(cfg config.Config) availability.Config {
	return availability.Config{
		URL:        cfg.SleeperURL,
		Timeout:    cfg.AvailabilityTimeout,
		MaxRetries: cfg.AvailabilityMaxRetries,
		Backoff:    cfg.AvailabilityBackoff,
		MaxAge:     cfg.SnapshotMaxAge,
		CacheDir:   cfg.CacheDir,
	}
}

// EngineOptions maps the runtime config onto engine options. scoringName
// overrides cfg.Scoring when set.
func EngineOptions(cfg config.Config, scoringName string) (engine.Options, error) {
	if scoringName == "" {
		scoringName = cfg.Scoring
	}
	policy, err := scoring.NewPolicy(scoringName)
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.DefaultOptions()
	opts.Policy = policy
	opts.InjuryFilter = cfg.InjuryFilter
	opts.BenchingFilter = cfg.QBBenchingFilter
	return opts, nil
}

// Wired is an engine plus the collaborators other components share with it.
type Wired struct {
	Engine       *engine.Engine
	Availability *availability.Source
	Mapper       *identity.Mapper
}

// NewEngine wires an unfitted engine over the repositories.
func NewEngine(ctx context.Context, cfg config.Config, repos Repositories, scoringName string, logger *logrus.Logger) (*Wired, error) {
	opts, err := EngineOptions(cfg, scoringName)
	if err != nil {
		return nil, err
	}

	mapper, err := identity.Load(ctx, repos.Mappings, cfg.MappingFile, logger)
	if err != nil {
		return nil, fmt.Errorf("loading id mappings: %w", err)
	}

	source := availability.NewSource(AvailabilityConfig(cfg), logger)

	eng := engine.New(engine.Sources{
		Stats:        repos.Stats,
		Rosters:      repos.Rosters,
		Schedule:     repos.Schedules,
		Availability: source,
		Mapper:       mapper,
	}, opts, logger)

	return &Wired{Engine: eng, Availability: source, Mapper: mapper}, nil
}
