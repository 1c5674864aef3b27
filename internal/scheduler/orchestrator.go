package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/engine"
	"github.com/fortuna/ceres/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AvailabilityRefresher refreshes the availability snapshot as a side effect.
type AvailabilityRefresher interface {
	Summary(ctx context.Context) service.AvailabilitySummary
}

// WeeklyPublisher computes and publishes a weekly table.
type WeeklyPublisher interface {
	PublishWeekly(ctx context.Context, week, season int) (engine.Table, error)
	Invalidate(ctx context.Context)
}

// Config holds scheduler configuration
type Config struct {
	RefreshSchedule    string        // Default: every 6 hours
	PublishSchedule    string        // Default: 15 minutes after each refresh
	EnableRefresh      bool          // Default: true
	EnablePublish      bool          // Default: true
	MaxRetries         int           // Default: 3
	RetryDelay         time.Duration // Default: 5s
	RegularSeasonWeeks int           // Default: 18
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		RefreshSchedule:    "0 */6 * * *",
		PublishSchedule:    "15 */6 * * *",
		EnableRefresh:      true,
		EnablePublish:      true,
		MaxRetries:         3,
		RetryDelay:         5 * time.Second,
		RegularSeasonWeeks: 18,
	}
}

// Orchestrator runs the periodic availability refresh and weekly publish.
type Orchestrator struct {
	cron         *cron.Cron
	availability AvailabilityRefresher
	projections  WeeklyPublisher
	config       *Config
	logger       *logrus.Entry
	now          func() time.Time
	baseCtx      context.Context

	mu      sync.Mutex
	lastRun map[string]time.Time
}

// NewOrchestrator creates a new scheduler orchestrator. Invalid cron
// expressions are reported here rather than at Start.
func NewOrchestrator(availabilitySvc AvailabilityRefresher, projections WeeklyPublisher, config *Config, logger logrus.FieldLogger) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	o := &Orchestrator{
		cron:         cron.New(),
		availability: availabilitySvc,
		projections:  projections,
		config:       config,
		logger:       logger.WithField("component", "scheduler"),
		now:          time.Now,
		lastRun:      make(map[string]time.Time),
	}

	if config.EnableRefresh && availabilitySvc != nil {
		if _, err := o.cron.AddFunc(config.RefreshSchedule, o.job("availability-refresh", o.RefreshAvailability)); err != nil {
			return nil, fmt.Errorf("parsing refresh schedule %q: %w", config.RefreshSchedule, err)
		}
	}
	if config.EnablePublish && projections != nil {
		if _, err := o.cron.AddFunc(config.PublishSchedule, o.job("weekly-publish", o.PublishCurrentWeek)); err != nil {
			return nil, fmt.Errorf("parsing publish schedule %q: %w", config.PublishSchedule, err)
		}
	}

	return o, nil
}

// Start begins all scheduled tasks. Jobs stop receiving a live context once
// ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Infof("Availability refresh: %v (%s)", o.config.EnableRefresh, o.config.RefreshSchedule)
	o.logger.Infof("Weekly publish: %v (%s)", o.config.EnablePublish, o.config.PublishSchedule)

	o.baseCtx = ctx

	o.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (o *Orchestrator) Stop() {
	o.logger.Info("Stopping scheduler orchestrator...")
	<-o.cron.Stop().Done()
	o.logger.Info("✓ Scheduler orchestrator stopped")
}

func (o *Orchestrator) job(name string, fn func(context.Context) error) func() {
	return func() {
		ctx := o.baseCtx
		if ctx == nil {
			ctx = context.Background()
		}
		start := o.now()
		if err := fn(ctx); err != nil {
			o.logger.WithField("job", name).Errorf("❌ Job failed: %v", err)
			return
		}
		o.mu.Lock()
		o.lastRun[name] = start
		o.mu.Unlock()
		o.logger.WithField("job", name).Infof("✓ Job complete in %v", o.now().Sub(start).Round(time.Millisecond))
	}
}

// RefreshAvailability fetches availability once. A fallback to the snapshot
// or to nothing counts as a failed attempt and is retried. A live result
// drops cached projection tables so status changes show up immediately.
func (o *Orchestrator) RefreshAvailability(ctx context.Context) error {
	var summary service.AvailabilitySummary
	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		summary = o.availability.Summary(ctx)
		if summary.Source == availability.OriginLive {
			if o.projections != nil {
				o.projections.Invalidate(ctx)
			}
			return nil
		}

		o.logger.Warnf("⚠️  Refresh attempt %d/%d served from %s", attempt, o.config.MaxRetries, summary.Source)
		if attempt < o.config.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.config.RetryDelay):
			}
		}
	}
	return fmt.Errorf("availability still served from %s after %d attempts", summary.Source, o.config.MaxRetries)
}

// PublishCurrentWeek drops cached tables and publishes the current week.
// Outside the regular season it does nothing.
func (o *Orchestrator) PublishCurrentWeek(ctx context.Context) error {
	now := o.now()
	season := engine.CurrentSeason(now)
	week := CurrentWeek(now, o.config.RegularSeasonWeeks)
	if week == 0 {
		o.logger.Debug("Outside the regular season, nothing to publish")
		return nil
	}

	o.projections.Invalidate(ctx)
	table, err := o.projections.PublishWeekly(ctx, week, season)
	if err != nil {
		return fmt.Errorf("publishing week %d of %d: %w", week, season, err)
	}
	o.logger.Infof("Published week %d of %d: %d rows", week, season, table.Len())
	return nil
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	last := make(map[string]time.Time, len(o.lastRun))
	for k, v := range o.lastRun {
		last[k] = v
	}
	return map[string]interface{}{
		"refresh_enabled":  o.config.EnableRefresh,
		"refresh_schedule": o.config.RefreshSchedule,
		"publish_enabled":  o.config.EnablePublish,
		"publish_schedule": o.config.PublishSchedule,
		"last_run":         last,
		"entries":          len(o.cron.Entries()),
	}
}

// Kickoff is the Thursday after the first Monday of September.
func Kickoff(season int) time.Time {
	d := time.Date(season, time.September, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 3)
}

// CurrentWeek is the regular-season week containing now, or 0 outside it.
// Weeks roll over on the Tuesday before each Thursday opener.
func CurrentWeek(now time.Time, weeks int) int {
	season := engine.CurrentSeason(now)
	start := Kickoff(season).AddDate(0, 0, -2)
	now = now.UTC()
	if now.Before(start) {
		return 0
	}
	week := int(now.Sub(start).Hours()/(24*7)) + 1
	if week > weeks {
		return 0
	}
	return week
}
