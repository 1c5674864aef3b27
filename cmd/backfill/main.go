package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fortuna/ceres/internal/backfill"
	"github.com/fortuna/ceres/internal/bootstrap"
	"github.com/fortuna/ceres/internal/config"
	"github.com/fortuna/ceres/internal/ingest/nflverse"
	"github.com/fortuna/ceres/internal/logging"
	"github.com/fortuna/ceres/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	appName    = "ceres-backfill"
	appVersion = "1.0.0"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "Optional YAML config file")
		dsn        = flag.String("dsn", "", "Postgres DSN (overrides ATLAS_DSN)")
		baseURL    = flag.String("nflverse-url", "", "nflverse release base URL")
		seasons    = flag.String("seasons", "", "Comma-separated seasons to load (e.g., 2022,2023,2024)")
		datasets   = flag.String("datasets", "", "Comma-separated datasets: stats,rosters,schedules (default all)")
		dryRun     = flag.Bool("dry-run", false, "Download and parse only (do not write to DB)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if *dsn != "" {
		cfg.DatabaseDSN = *dsn
	}
	if *baseURL != "" {
		cfg.NFLVerseBaseURL = *baseURL
	}

	logger, logCloser, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.Fatalf("set up logging: %v", err)
	}
	defer logCloser.Close()

	logger.Infof("=== %s v%s ===", appName, appVersion)

	spec, err := buildSpec(*seasons, *datasets)
	if err != nil {
		logger.Fatalf("build spec: %v", err)
	}
	spec.DryRun = *dryRun

	var writers nflverse.Writers
	if !spec.DryRun {
		db, err := store.NewDatabase(cfg.DatabaseDSN, logger)
		if err != nil {
			logger.Fatalf("connect database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(context.Background()); err != nil {
			logger.Fatalf("run migrations: %v", err)
		}

		repos := bootstrap.NewRepositories(db)
		writers = nflverse.Writers{
			Stats:     repos.Stats,
			Rosters:   repos.Rosters,
			Schedules: repos.Schedules,
			Mappings:  repos.Mappings,
		}
	}

	ingester := nflverse.NewIngester(nflverse.NewClient(cfg.NFLVerseBaseURL, cfg.NFLVerseGamesURL, logger), writers, logger)
	runner := backfill.NewRunner(ingester)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := &consoleReporter{logger: logger, dryRun: spec.DryRun}
	if err := runner.Run(ctx, spec, reporter); err != nil {
		logger.Fatalf("backfill failed: %v", err)
	}

	logger.Info("✓ Backfill completed successfully")
}

func buildSpec(seasons, datasets string) (backfill.JobSpec, error) {
	var spec backfill.JobSpec

	for _, part := range strings.Split(seasons, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		season, err := strconv.Atoi(part)
		if err != nil {
			return spec, fmt.Errorf("invalid season %q", part)
		}
		spec.Seasons = append(spec.Seasons, season)
	}
	if len(spec.Seasons) == 0 {
		return spec, fmt.Errorf("specify -seasons")
	}

	parsed, err := nflverse.ParseDatasets(datasets)
	if err != nil {
		return spec, err
	}
	spec.Datasets = parsed
	return spec, nil
}

type consoleReporter struct {
	logger logrus.FieldLogger
	dryRun bool
}

func (c *consoleReporter) OnJobStart(spec backfill.JobSpec) {
	c.logger.Infof("Starting backfill of %v %v (dry_run=%v)", spec.Seasons, spec.Datasets, c.dryRun)
}

func (c *consoleReporter) OnSeasonStart(season int, index int, total int) {
	c.logger.Infof("[%d/%d] season %d", index+1, total, season)
}

func (c *consoleReporter) OnDatasetProcessed(result nflverse.Result) {
	c.logger.Infof("Processed %s %d: parsed=%d written=%d mappings=%d",
		result.Dataset, result.Season, result.Parsed, result.Written, result.Mappings)
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	c.logger.Infof("Progress: %s (%d/%d)", message, current, total)
}

func (c *consoleReporter) OnJobComplete() {
	c.logger.Info("Job complete")
}

func (c *consoleReporter) OnJobError(err error) {
	c.logger.Errorf("Job error: %v", err)
}
