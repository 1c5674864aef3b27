package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/engine"
	"github.com/fortuna/ceres/internal/service"
	"github.com/sirupsen/logrus/hooks/test"
)

type scriptedAvailability struct {
	origins []availability.Origin
	calls   int
}

func (s *scriptedAvailability) Summary(context.Context) service.AvailabilitySummary {
	origin := s.origins[len(s.origins)-1]
	if s.calls < len(s.origins) {
		origin = s.origins[s.calls]
	}
	s.calls++
	return service.AvailabilitySummary{Source: origin}
}

type recordingPublisher struct {
	week, season int
	invalidated  bool
	err          error
}

func (r *recordingPublisher) PublishWeekly(_ context.Context, week, season int) (engine.Table, error) {
	r.week, r.season = week, season
	return engine.Table{Week: week, Season: season}, r.err
}

func (r *recordingPublisher) Invalidate(context.Context) { r.invalidated = true }

func newTestOrchestrator(t *testing.T, a AvailabilityRefresher, p WeeklyPublisher) *Orchestrator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	o, err := NewOrchestrator(a, p, cfg, logger)
	if err != nil {
		t.Fatalf("NewOrchestrator error: %v", err)
	}
	return o
}

func TestNewOrchestrator_RegistersJobs(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAvailability{origins: []availability.Origin{availability.OriginLive}}, &recordingPublisher{})
	if n := len(o.cron.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
}

func TestNewOrchestrator_BadSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.RefreshSchedule = "every six hours"
	if _, err := NewOrchestrator(&scriptedAvailability{}, nil, cfg, logger); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRefreshAvailability_RetriesUntilLive(t *testing.T) {
	a := &scriptedAvailability{origins: []availability.Origin{availability.OriginSnapshot, availability.OriginLive}}
	o := newTestOrchestrator(t, a, nil)

	if err := o.RefreshAvailability(context.Background()); err != nil {
		t.Fatalf("RefreshAvailability error: %v", err)
	}
	if a.calls != 2 {
		t.Errorf("calls = %d, want 2", a.calls)
	}
}

func TestRefreshAvailability_GivesUp(t *testing.T) {
	a := &scriptedAvailability{origins: []availability.Origin{availability.OriginNone}}
	p := &recordingPublisher{}
	o := newTestOrchestrator(t, a, p)

	if err := o.RefreshAvailability(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if a.calls != 3 {
		t.Errorf("calls = %d, want 3", a.calls)
	}
	if p.invalidated {
		t.Error("cache cleared although availability never came back live")
	}
}

func TestRefreshAvailability_LiveResultClearsProjectionCache(t *testing.T) {
	a := &scriptedAvailability{origins: []availability.Origin{availability.OriginLive}}
	p := &recordingPublisher{}
	o := newTestOrchestrator(t, a, p)

	if err := o.RefreshAvailability(context.Background()); err != nil {
		t.Fatalf("RefreshAvailability error: %v", err)
	}
	if !p.invalidated {
		t.Error("live refresh should clear cached projection tables")
	}
	if p.week != 0 {
		t.Errorf("refresh should not publish, got week %d", p.week)
	}
}

func TestPublishCurrentWeek(t *testing.T) {
	p := &recordingPublisher{}
	o := newTestOrchestrator(t, nil, p)
	o.now = func() time.Time { return time.Date(2024, time.September, 20, 12, 0, 0, 0, time.UTC) }

	if err := o.PublishCurrentWeek(context.Background()); err != nil {
		t.Fatalf("PublishCurrentWeek error: %v", err)
	}
	if !p.invalidated || p.week != 3 || p.season != 2024 {
		t.Errorf("publisher = %+v", p)
	}
}

func TestPublishCurrentWeek_Offseason(t *testing.T) {
	p := &recordingPublisher{err: errors.New("should not be called")}
	o := newTestOrchestrator(t, nil, p)
	o.now = func() time.Time { return time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC) }

	if err := o.PublishCurrentWeek(context.Background()); err != nil {
		t.Fatalf("PublishCurrentWeek error: %v", err)
	}
	if p.invalidated {
		t.Error("offseason run touched the publisher")
	}
}

func TestKickoffAndCurrentWeek(t *testing.T) {
	if got := Kickoff(2024); !got.Equal(time.Date(2024, time.September, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Kickoff(2024) = %v", got)
	}
	if got := Kickoff(2025); !got.Equal(time.Date(2025, time.September, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Kickoff(2025) = %v", got)
	}

	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, time.September, 9, 23, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, time.September, 10, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC), 18},
		{time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, c := range cases {
		if got := CurrentWeek(c.now, 18); got != c.want {
			t.Errorf("CurrentWeek(%s) = %d, want %d", c.now.Format("2006-01-02"), got, c.want)
		}
	}
}
