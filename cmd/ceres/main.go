package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/ceres/internal/api/rest"
	"github.com/fortuna/ceres/internal/backfill"
	"github.com/fortuna/ceres/internal/bootstrap"
	"github.com/fortuna/ceres/internal/cache"
	"github.com/fortuna/ceres/internal/config"
	"github.com/fortuna/ceres/internal/ingest/nflverse"
	"github.com/fortuna/ceres/internal/logging"
	"github.com/fortuna/ceres/internal/publisher"
	"github.com/fortuna/ceres/internal/scheduler"
	"github.com/fortuna/ceres/internal/service"
	"github.com/fortuna/ceres/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	serviceName    = "ceres"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger, logCloser, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	logger.Infof("Starting %s v%s - Fantasy Projection Service", serviceName, serviceVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := store.NewDatabase(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger.Info("✓ Connected to database")

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatalf("Failed to run database migrations: %v", err)
	}
	logger.Info("✓ Database migrations applied")

	// Initialize Redis client with retry logic
	var redisCache *cache.RedisCache
	maxRetries := 30
	retryDelay := 2 * time.Second

	logger.Info("Connecting to Redis...")
	for i := 0; i < maxRetries; i++ {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			logger.Warnf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		} else {
			logger.Fatalf("Failed to connect to Redis after %d attempts: %v", maxRetries, err)
		}
	}
	defer redisCache.Close()

	logger.Info("✓ Connected to Redis")

	repos := bootstrap.NewRepositories(db)
	wired, err := bootstrap.NewEngine(ctx, cfg, repos, "", logger)
	if err != nil {
		logger.Fatalf("Failed to build projection engine: %v", err)
	}

	streamPublisher := publisher.NewRedisStreamPublisher(redisCache.Client())
	projectionService := service.NewProjectionService(wired.Engine, redisCache, streamPublisher, cfg.ProjectionCacheTTL, logger)
	availabilityService := service.NewAvailabilityService(wired.Availability, logger)

	// Fitting up front is best effort; requests fit lazily otherwise.
	if _, err := projectionService.Fit(ctx, nil); err != nil {
		logger.Warnf("⚠️  Initial model fit failed: %v (will retry on first request)", err)
	} else {
		logger.Info("✓ Models fitted")
	}

	// Initialize backfill service
	ingester := nflverse.NewIngester(
		nflverse.NewClient(cfg.NFLVerseBaseURL, cfg.NFLVerseGamesURL, logger),
		nflverse.Writers{
			Stats:     repos.Stats,
			Rosters:   repos.Rosters,
			Schedules: repos.Schedules,
			Mappings:  repos.Mappings,
		},
		logger,
	)
	backfillService := backfill.NewService(backfill.NewRunner(ingester), func(ctx context.Context, _ []int) error {
		_, err := projectionService.Fit(ctx, nil)
		return err
	}, logger)
	backfillService.Start()

	logger.Info("✓ Backfill service started")

	// Initialize scheduler
	schedulerConfig := scheduler.DefaultConfig()
	schedulerConfig.RefreshSchedule = cfg.RefreshSchedule
	schedulerConfig.PublishSchedule = cfg.PublishSchedule

	sched, err := scheduler.NewOrchestrator(availabilityService, projectionService, schedulerConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start(ctx)

	logger.Info("✓ Scheduler started")

	// Initialize REST API server
	checks := []rest.HealthCheck{
		{Name: "postgres", Check: db.HealthCheck},
		{Name: "redis", Check: func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer pingCancel()
			return redisCache.HealthCheck(pingCtx)
		}},
	}
	restServer := rest.NewServer(cfg.RESTPort, projectionService, availabilityService, backfillService, checks, logger)
	go func() {
		logger.Infof("Starting REST API server on port %s", cfg.RESTPort)
		if err := restServer.Start(); err != nil {
			logger.Errorf("REST server error: %v", err)
		}
	}()

	logger.Infof("✓ Ceres v%s started successfully", serviceVersion)
	logger.Infof("  REST API: http://0.0.0.0:%s", cfg.RESTPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down Ceres gracefully...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("REST API server shutdown error: %v", err)
	}
	if err := backfillService.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Backfill service shutdown error: %v", err)
	}

	logger.Info("Ceres stopped")
}
