// Package engine fits the position projectors on historical stats and
// produces ranked weekly and seasonal projection tables, passing weekly
// tables through the bye week, injury and QB benching filters.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/projector"
	"github.com/fortuna/ceres/internal/scoring"
	"github.com/fortuna/ceres/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrPlayerNotFound is returned when a single-player request names an id
	// that is not on the season roster.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrUnsupportedPosition is returned when a single-player request names a
	// player whose position has no projector.
	ErrUnsupportedPosition = errors.New("projections not available for position")
	// ErrWeekRequired is returned when a weekly request has no week.
	ErrWeekRequired = errors.New("week is required for weekly projections")
)

// StatsSource loads per-game stat lines. A season with no data yields no rows.
type StatsSource interface {
	LoadPlayerStats(ctx context.Context, seasons []int) ([]store.GameRecord, error)
}

// RosterSource loads the player-team-position table for a season.
type RosterSource interface {
	LoadRosters(ctx context.Context, season int) ([]store.RosterEntry, error)
}

// ScheduleSource loads the regular-season schedule for a season.
type ScheduleSource interface {
	LoadSchedule(ctx context.Context, season int) ([]store.ScheduledGame, error)
}

// AvailabilityProvider returns current availability. It never fails; an
// empty set means unknown.
type AvailabilityProvider interface {
	Fetch(ctx context.Context) (availability.Records, availability.Origin)
}

// IDMapper translates stats ids to availability ids.
type IDMapper interface {
	ToAvailabilityID(statsID string) (string, bool)
}

// Options configures an Engine.
type Options struct {
	Policy             *scoring.Policy
	InjuryFilter       bool
	BenchingFilter     bool
	FitWindow          int
	RegularSeasonWeeks int
	Seasonal           projector.SeasonalOptions
	Now                func() time.Time
}

// DefaultOptions returns PPR scoring with every filter enabled.
func DefaultOptions() Options {
	return Options{
		Policy:             scoring.MustPolicy(string(scoring.PresetPPR)),
		InjuryFilter:       true,
		BenchingFilter:     true,
		FitWindow:          3,
		RegularSeasonWeeks: 18,
		Seasonal:           projector.DefaultSeasonalOptions(),
		Now:                time.Now,
	}
}

// Sources groups the engine's collaborators.
type Sources struct {
	Stats        StatsSource
	Rosters      RosterSource
	Schedule     ScheduleSource
	Availability AvailabilityProvider
	Mapper       IDMapper
}

// Engine is unfitted until Fit runs, either explicitly or on the first
// projection request. Methods are safe for concurrent use.
type Engine struct {
	opts         Options
	stats        StatsSource
	rosters      RosterSource
	schedule     ScheduleSource
	availability AvailabilityProvider
	mapper       IDMapper
	logger       logrus.FieldLogger

	mu         sync.Mutex
	projectors map[string]projector.Projector
	histories  map[string]projector.History
	seasons    []int
	fitted     bool
	fittedAt   time.Time
}

// New creates an unfitted engine.
func New(src Sources, opts Options, logger logrus.FieldLogger) *Engine {
	defaults := DefaultOptions()
	if opts.Policy == nil {
		opts.Policy = defaults.Policy
	}
	if opts.FitWindow <= 0 {
		opts.FitWindow = defaults.FitWindow
	}
	if opts.RegularSeasonWeeks <= 0 {
		opts.RegularSeasonWeeks = defaults.RegularSeasonWeeks
	}
	if opts.Seasonal.ExpectedGames <= 0 || opts.Seasonal.InjuryRisk <= 0 {
		opts.Seasonal = defaults.Seasonal
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	e := &Engine{
		opts:         opts,
		stats:        src.Stats,
		rosters:      src.Rosters,
		schedule:     src.Schedule,
		availability: src.Availability,
		mapper:       src.Mapper,
		logger:       logger.WithField("component", "engine"),
		projectors:   projector.DefaultSet(),
	}

	e.logger.Infof("Engine initialized with %s scoring, injury_filter=%t, qb_benching_filter=%t",
		opts.Policy.Preset, opts.InjuryFilter, opts.BenchingFilter)
	return e
}

// CurrentSeason returns the NFL season in progress at now. Seasons start in September.
func CurrentSeason(now time.Time) int {
	if now.Month() >= time.September {
		return now.Year()
	}
	return now.Year() - 1
}

// CurrentSeason returns the season in progress by the engine's clock.
func (e *Engine) CurrentSeason() int {
	return CurrentSeason(e.opts.Now())
}

// DefaultSeasons returns the fit window ending at the current season.
func (e *Engine) DefaultSeasons() []int {
	current := e.CurrentSeason()
	seasons := make([]int, e.opts.FitWindow)
	for i := range seasons {
		seasons[i] = current - i
	}
	return seasons
}

// Fit trains every projector on the given seasons, or the default window if
// none are given. A position with no games stays untrained and its players
// are skipped at projection time.
func (e *Engine) Fit(ctx context.Context, seasons []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fitLocked(ctx, seasons)
}

func (e *Engine) fitLocked(ctx context.Context, seasons []int) error {
	if len(seasons) == 0 {
		seasons = e.DefaultSeasons()
	}
	e.logger.Infof("Training projection models on seasons: %v", seasons)

	records, err := e.stats.LoadPlayerStats(ctx, seasons)
	if err != nil {
		return fmt.Errorf("loading training stats: %w", err)
	}

	corpus := make([]projector.ScoredGame, 0, len(records))
	byPlayer := make(map[string][]projector.ScoredGame)
	for i := range records {
		r := &records[i]
		g := projector.ScoredGame{
			PlayerID: r.PlayerID,
			Position: strings.ToUpper(r.Position),
			Season:   r.Season,
			Week:     r.Week,
			Points:   e.opts.Policy.Calculate(r.Stats()),
		}
		corpus = append(corpus, g)
		byPlayer[g.PlayerID] = append(byPlayer[g.PlayerID], g)
	}

	projectors := projector.DefaultSet()
	for position, p := range projectors {
		if err := p.Fit(corpus); err != nil {
			e.logger.Warnf("⚠️  No training data found for position %s", position)
			continue
		}
		b := p.Baseline()
		e.logger.Infof("✓ Trained %s projector on %d records (avg %.2f points)", position, b.Games, b.Mean)
	}

	histories := make(map[string]projector.History, len(byPlayer))
	for id, games := range byPlayer {
		histories[id] = projector.NewHistory(games)
	}

	e.projectors = projectors
	e.histories = histories
	e.seasons = append([]int(nil), seasons...)
	e.fitted = true
	e.fittedAt = e.opts.Now()

	e.logger.Infof("✓ All projection models trained (%d games, %d players)", len(corpus), len(histories))
	return nil
}

func (e *Engine) ensureFitted(ctx context.Context) error {
	if e.fitted {
		return nil
	}
	e.logger.Info("Models not fitted. Training on default seasons...")
	return e.fitLocked(ctx, nil)
}

// Status describes the fit state.
type Status struct {
	Fitted    bool                          `json:"fitted"`
	FittedAt  time.Time                     `json:"fitted_at,omitempty"`
	Seasons   []int                         `json:"seasons,omitempty"`
	Players   int                           `json:"players"`
	Scoring   string                        `json:"scoring"`
	Baselines map[string]projector.Baseline `json:"baselines,omitempty"`
}

// Status reports whether the engine is fitted and on what.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Fitted:   e.fitted,
		FittedAt: e.fittedAt,
		Seasons:  append([]int(nil), e.seasons...),
		Players:  len(e.histories),
		Scoring:  string(e.opts.Policy.Preset),
	}
	if e.fitted {
		s.Baselines = make(map[string]projector.Baseline)
		for pos, p := range e.projectors {
			if p.Trained() {
				s.Baselines[pos] = p.Baseline()
			}
		}
	}
	return s
}

// Filter narrows a roster. Empty slices match everything.
type Filter struct {
	Positions []string
	PlayerIDs []string
}

// WeeklyRequest asks for projections for one week.
type WeeklyRequest struct {
	Week   int
	Season int
	Filter
}

// SeasonalRequest asks for season-long projections.
type SeasonalRequest struct {
	Season int
	Filter
}

// WeeklyProjections projects every rostered player for the week and applies
// the availability filters.
func (e *Engine) WeeklyProjections(ctx context.Context, req WeeklyRequest) (Table, error) {
	if req.Week <= 0 {
		return Table{}, ErrWeekRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureFitted(ctx); err != nil {
		return Table{}, err
	}
	if req.Season == 0 {
		req.Season = e.CurrentSeason()
	}

	table, err := e.project(ctx, KindWeekly, req.Season, req.Week, req.Filter)
	if err != nil {
		return Table{}, err
	}

	table = e.runPipeline(ctx, table, e.weeklyStages())

	e.logger.WithField("run_id", table.RunID).Infof("Generated %d weekly projections for week %d, %d (%d zeroed)",
		table.Len(), req.Week, req.Season, table.Zeroed(""))
	return table, nil
}

// SeasonalProjections projects the whole season. No availability filters apply.
func (e *Engine) SeasonalProjections(ctx context.Context, req SeasonalRequest) (Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureFitted(ctx); err != nil {
		return Table{}, err
	}
	if req.Season == 0 {
		req.Season = e.CurrentSeason()
	}

	table, err := e.project(ctx, KindSeasonal, req.Season, 0, req.Filter)
	if err != nil {
		return Table{}, err
	}

	e.logger.WithField("run_id", table.RunID).Infof("Generated %d seasonal projections for %d", table.Len(), req.Season)
	return table, nil
}

func (e *Engine) project(ctx context.Context, kind Kind, season, week int, f Filter) (Table, error) {
	roster, err := e.rosters.LoadRosters(ctx, season)
	if err != nil {
		return Table{}, fmt.Errorf("loading %d rosters: %w", season, err)
	}
	roster = f.apply(roster)

	table := Table{
		RunID:       uuid.NewString(),
		Kind:        kind,
		Scoring:     string(e.opts.Policy.Preset),
		Week:        week,
		Season:      season,
		GeneratedAt: e.opts.Now().UTC(),
		Rows:        make([]Row, 0, len(roster)),
	}

	seen := make(map[string]bool, len(roster))
	for _, player := range roster {
		if seen[player.PlayerID] {
			continue
		}
		seen[player.PlayerID] = true

		position := strings.ToUpper(player.Position)
		p, ok := e.projectors[position]
		if !ok {
			continue
		}

		history := e.histories[player.PlayerID]
		if len(history) == 0 {
			e.logger.Debugf("No historical data for player %s", player.PlayerID)
			continue
		}

		proj, err := e.predict(p, history, kind, season, week)
		if err != nil {
			e.logger.Errorf("Error projecting for player %s: %v", player.PlayerID, err)
			continue
		}

		table.Rows = append(table.Rows, newRow(player, position, proj, season, week))
	}

	if table.Len() == 0 {
		e.logger.Warn("⚠️  No projections generated")
	}

	sortRows(table.Rows)
	return table, nil
}

func (e *Engine) predict(p projector.Projector, h projector.History, kind Kind, season, week int) (projector.Projection, error) {
	if kind == KindSeasonal {
		return p.PredictSeasonal(h, season, e.opts.Seasonal)
	}
	return p.PredictWeekly(h, week, season)
}

func newRow(player store.RosterEntry, position string, proj projector.Projection, season, week int) Row {
	return Row{
		PlayerID:        player.PlayerID,
		PlayerName:      player.FullName,
		Position:        position,
		Team:            player.Team,
		Week:            week,
		Season:          season,
		Points:          proj.Points,
		Lower:           proj.Lower,
		Upper:           proj.Upper,
		ConfidenceLevel: proj.ConfidenceLevel,
		ExpectedGames:   proj.ExpectedGames,
	}
}

// PlayerRequest asks for one player's projection.
type PlayerRequest struct {
	PlayerID string
	Kind     Kind
	Week     int
	Season   int
}

// PlayerProjection projects a single player without running the availability
// filters. Unlike batch requests, a missing player is an error, and a player
// with no history gets the position baseline.
func (e *Engine) PlayerProjection(ctx context.Context, req PlayerRequest) (Row, error) {
	if req.Kind == "" {
		req.Kind = KindWeekly
	}
	if req.Kind == KindWeekly && req.Week <= 0 {
		return Row{}, ErrWeekRequired
	}
	if req.Kind == KindSeasonal {
		req.Week = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Season == 0 {
		req.Season = e.CurrentSeason()
	}

	roster, err := e.rosters.LoadRosters(ctx, req.Season)
	if err != nil {
		return Row{}, fmt.Errorf("loading %d rosters: %w", req.Season, err)
	}

	var player *store.RosterEntry
	for i := range roster {
		if roster[i].PlayerID == req.PlayerID {
			player = &roster[i]
			break
		}
	}
	if player == nil {
		return Row{}, fmt.Errorf("%w: %s in %d", ErrPlayerNotFound, req.PlayerID, req.Season)
	}

	position := strings.ToUpper(player.Position)
	if !projector.Supported(position) {
		return Row{}, fmt.Errorf("%w %s", ErrUnsupportedPosition, player.Position)
	}

	if err := e.ensureFitted(ctx); err != nil {
		return Row{}, err
	}

	proj, err := e.predict(e.projectors[position], e.histories[req.PlayerID], req.Kind, req.Season, req.Week)
	if err != nil {
		return Row{}, fmt.Errorf("projecting %s: %w", req.PlayerID, err)
	}

	return newRow(*player, position, proj, req.Season, req.Week), nil
}

func (f Filter) apply(roster []store.RosterEntry) []store.RosterEntry {
	if len(f.Positions) == 0 && len(f.PlayerIDs) == 0 {
		return roster
	}

	positions := toSet(f.Positions, strings.ToUpper)
	ids := toSet(f.PlayerIDs, nil)

	out := make([]store.RosterEntry, 0, len(roster))
	for _, r := range roster {
		if len(positions) > 0 && !positions[strings.ToUpper(r.Position)] {
			continue
		}
		if len(ids) > 0 && !ids[r.PlayerID] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func toSet(values []string, norm func(string) string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if norm != nil {
			v = norm(v)
		}
		set[v] = true
	}
	return set
}

// SortedPositions lists the positions with a projector.
func SortedPositions() []string {
	set := projector.DefaultSet()
	out := make([]string, 0, len(set))
	for pos := range set {
		out = append(out, pos)
	}
	sort.Strings(out)
	return out
}
