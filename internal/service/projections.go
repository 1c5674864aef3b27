package service

import (
	"context"
	"errors"
	"time"

	"github.com/fortuna/ceres/internal/cache"
	"github.com/fortuna/ceres/internal/engine"
	"github.com/sirupsen/logrus"
)

// TableCache stores rendered tables
type TableCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// TablePublisher fans finished tables out to consumers
type TablePublisher interface {
	PublishTable(ctx context.Context, table engine.Table) (string, error)
}

// ProjectionService handles projection requests on top of the engine.
// Cache and publisher are optional; their failures are logged, never returned.
// Cached tables live for the configured TTL unless Invalidate runs first; the
// scheduler invalidates after every live availability refresh and on fit.
type ProjectionService struct {
	engine    *engine.Engine
	cache     TableCache
	publisher TablePublisher
	ttl       time.Duration
	logger    logrus.FieldLogger
}

// NewProjectionService creates a new projection service
func NewProjectionService(eng *engine.Engine, tableCache TableCache, publisher TablePublisher, ttl time.Duration, logger logrus.FieldLogger) *ProjectionService {
	return &ProjectionService{
		engine:    eng,
		cache:     tableCache,
		publisher: publisher,
		ttl:       ttl,
		logger:    logger.WithField("component", "projection-service"),
	}
}

// Weekly returns the filtered weekly table, from cache when possible
func (s *ProjectionService) Weekly(ctx context.Context, req engine.WeeklyRequest) (engine.Table, error) {
	if req.Week <= 0 {
		return engine.Table{}, engine.ErrWeekRequired
	}
	if req.Season == 0 {
		req.Season = s.engine.CurrentSeason()
	}

	key := cache.WeeklyKey(s.scoring(), req.Season, req.Week, req.Positions, req.PlayerIDs)
	if table, ok := s.cached(ctx, key); ok {
		return table, nil
	}

	table, err := s.engine.WeeklyProjections(ctx, req)
	if err != nil {
		return engine.Table{}, err
	}

	s.store(ctx, key, table)
	return table, nil
}

// Seasonal returns the season-long table, from cache when possible
func (s *ProjectionService) Seasonal(ctx context.Context, req engine.SeasonalRequest) (engine.Table, error) {
	if req.Season == 0 {
		req.Season = s.engine.CurrentSeason()
	}

	key := cache.SeasonalKey(s.scoring(), req.Season, req.Positions, req.PlayerIDs)
	if table, ok := s.cached(ctx, key); ok {
		return table, nil
	}

	table, err := s.engine.SeasonalProjections(ctx, req)
	if err != nil {
		return engine.Table{}, err
	}

	s.store(ctx, key, table)
	return table, nil
}

// Player returns one player's projection
func (s *ProjectionService) Player(ctx context.Context, req engine.PlayerRequest) (engine.Row, error) {
	return s.engine.PlayerProjection(ctx, req)
}

// Fit retrains the engine and drops every cached table
func (s *ProjectionService) Fit(ctx context.Context, seasons []int) (engine.Status, error) {
	if err := s.engine.Fit(ctx, seasons); err != nil {
		return engine.Status{}, err
	}
	s.Invalidate(ctx)
	return s.engine.Status(), nil
}

// Status reports the engine's fit state
func (s *ProjectionService) Status() engine.Status {
	return s.engine.Status()
}

// Invalidate removes cached projection tables
func (s *ProjectionService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	n, err := s.cache.DeletePrefix(ctx, cache.ProjectionsPrefix)
	if err != nil {
		s.logger.Warnf("⚠️  Failed to clear projection cache: %v", err)
		return
	}
	s.logger.Infof("Cleared %d cached projection tables", n)
}

// PublishWeekly computes the weekly table and publishes it to the stream
func (s *ProjectionService) PublishWeekly(ctx context.Context, week, season int) (engine.Table, error) {
	table, err := s.Weekly(ctx, engine.WeeklyRequest{Week: week, Season: season})
	if err != nil {
		return engine.Table{}, err
	}
	s.publish(ctx, table)
	return table, nil
}

func (s *ProjectionService) cached(ctx context.Context, key string) (engine.Table, bool) {
	if s.cache == nil {
		return engine.Table{}, false
	}

	var table engine.Table
	err := s.cache.GetJSON(ctx, key, &table)
	if err == nil {
		s.logger.WithField("key", key).Debug("Projection cache hit")
		return table, true
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warnf("⚠️  Projection cache read failed: %v", err)
	}
	return engine.Table{}, false
}

func (s *ProjectionService) store(ctx context.Context, key string, table engine.Table) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.SetJSON(ctx, key, table, s.ttl); err != nil {
		s.logger.Warnf("⚠️  Projection cache write failed: %v", err)
	}
}

func (s *ProjectionService) publish(ctx context.Context, table engine.Table) {
	if s.publisher == nil {
		return
	}
	id, err := s.publisher.PublishTable(ctx, table)
	if err != nil {
		s.logger.Warnf("⚠️  Failed to publish %s table: %v", table.Kind, err)
		return
	}
	s.logger.Infof("✓ Published %s table %s (%d rows) as %s", table.Kind, table.RunID, table.Len(), id)
}

func (s *ProjectionService) scoring() string {
	return s.engine.Status().Scoring
}
