package service

import (
	"context"
	"time"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/engine"
	"github.com/fortuna/ceres/internal/injury"
	"github.com/sirupsen/logrus"
)

// AvailabilitySummary is the injury gate breakdown of one fetch
type AvailabilitySummary struct {
	injury.Summary
	Source    availability.Origin `json:"source"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// AvailabilityService reports on and refreshes availability data
type AvailabilityService struct {
	source engine.AvailabilityProvider
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(source engine.AvailabilityProvider, logger logrus.FieldLogger) *AvailabilityService {
	return &AvailabilityService{
		source: source,
		logger: logger.WithField("component", "availability-service"),
		now:    time.Now,
	}
}

// Summary fetches availability and summarizes it. Refreshing the on-disk
// snapshot is a side effect of a successful live fetch.
func (s *AvailabilityService) Summary(ctx context.Context) AvailabilitySummary {
	records, origin := s.source.Fetch(ctx)
	summary := injury.Summarize(records)
	injury.LogSummary(s.logger, summary, string(origin))

	return AvailabilitySummary{
		Summary:   summary,
		Source:    origin,
		FetchedAt: s.now().UTC(),
	}
}
