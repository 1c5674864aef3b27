package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/injury"
	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus"
)

// stage is one filter in the availability pipeline. It returns a new table
// and must not modify its input.
type stage struct {
	name string
	run  func(ctx context.Context, in Table) (Table, error)
}

// runPipeline applies stages in order. A stage that errors or panics is
// logged and its input carries on to the next stage.
func (e *Engine) runPipeline(ctx context.Context, table Table, stages []stage) Table {
	for _, s := range stages {
		out, err := e.runStage(ctx, s, table)
		if err != nil {
			e.logger.WithField("stage", s.name).Errorf("Filter failed, keeping unfiltered rows: %v", err)
			continue
		}
		if out.Len() != table.Len() {
			e.logger.WithField("stage", s.name).Errorf("Filter changed row count %d -> %d, discarding its output", table.Len(), out.Len())
			continue
		}
		table = out
	}
	return table
}

func (e *Engine) runStage(ctx context.Context, s stage, in Table) (out Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s filter: %v", s.name, r)
		}
	}()
	return s.run(ctx, in.Clone())
}

// weeklyStages returns the filters for a weekly run in their fixed order:
// bye week, injury, then QB benching. Availability is fetched at most once
// per run and shared by the injury and benching stages.
func (e *Engine) weeklyStages() []stage {
	var (
		fetched bool
		records availability.Records
		origin  availability.Origin
	)
	loadAvailability := func(ctx context.Context) (availability.Records, availability.Origin) {
		if !fetched {
			records, origin = e.availability.Fetch(ctx)
			fetched = true
		}
		return records, origin
	}

	stages := []stage{{name: "bye_week", run: e.byeWeekFilter}}
	if e.opts.InjuryFilter && e.availability != nil {
		stages = append(stages, stage{name: "injury", run: func(ctx context.Context, in Table) (Table, error) {
			records, origin := loadAvailability(ctx)
			return e.injuryFilter(in, records, origin)
		}})
	}
	if e.opts.BenchingFilter && e.availability != nil {
		stages = append(stages, stage{name: "qb_benching", run: func(ctx context.Context, in Table) (Table, error) {
			records, _ := loadAvailability(ctx)
			return e.benchingFilter(in, records)
		}})
	}
	return stages
}

func (e *Engine) byeWeekFilter(ctx context.Context, t Table) (Table, error) {
	games, err := e.schedule.LoadSchedule(ctx, t.Season)
	if err != nil {
		return t, fmt.Errorf("loading %d schedule: %w", t.Season, err)
	}
	if len(games) == 0 {
		e.logger.Warnf("⚠️  No schedule for %d, skipping bye week filter", t.Season)
		return t, nil
	}

	byes := ByeWeeks(games, e.opts.RegularSeasonWeeks, e.logger)

	zeroed := 0
	for i := range t.Rows {
		row := &t.Rows[i]
		if bye, ok := byes[row.Team]; ok && bye == t.Week {
			row.zero(ZeroedBye)
			zeroed++
		}
	}

	e.logger.Infof("Bye week filter: zeroed %d players for week %d", zeroed, t.Week)
	return t, nil
}

func (e *Engine) injuryFilter(t Table, records availability.Records, origin availability.Origin) (Table, error) {
	if len(records) == 0 {
		e.logger.Warn("⚠️  No availability data, skipping injury filter")
		return t, nil
	}

	injury.LogSummary(e.logger, injury.Summarize(records), string(origin))

	zeroed := 0
	for i := range t.Rows {
		row := &t.Rows[i]
		rec, ok := e.lookup(row.PlayerID, records)
		if !ok {
			continue
		}

		row.RosterStatus = rec.Status
		row.InjuryStatus = rec.InjuryStatus
		row.DepthChartOrder = rec.DepthChartOrder

		if injury.DecideRecord(rec) == injury.Zero && row.Points != 0 {
			row.zero(ZeroedInjury)
			zeroed++
			e.logger.Debugf("Zeroed %s (status=%q injury=%q)", row.PlayerName, rec.Status, rec.InjuryStatus)
		}
	}

	e.logger.Infof("Injury filter: zeroed %d players", zeroed)
	return t, nil
}

// benchingFilter treats a QB with depth chart order above 1 as a backup.
func (e *Engine) benchingFilter(t Table, records availability.Records) (Table, error) {
	if len(records) == 0 {
		e.logger.Warn("⚠️  No availability data, skipping QB benching filter")
		return t, nil
	}

	zeroed := 0
	for i := range t.Rows {
		row := &t.Rows[i]
		if row.Position != "QB" {
			continue
		}
		rec, ok := e.lookup(row.PlayerID, records)
		if !ok || rec.DepthChartOrder == nil {
			continue
		}
		row.DepthChartOrder = rec.DepthChartOrder

		if *rec.DepthChartOrder > 1 && row.Points != 0 {
			row.zero(ZeroedBenched)
			zeroed++
			e.logger.Debugf("Zeroed benched QB %s (depth_chart_order=%d)", row.PlayerName, *rec.DepthChartOrder)
		}
	}

	e.logger.Infof("QB benching filter: zeroed %d players", zeroed)
	return t, nil
}

func (e *Engine) lookup(statsID string, records availability.Records) (availability.Record, bool) {
	if e.mapper == nil {
		return availability.Record{}, false
	}
	availabilityID, ok := e.mapper.ToAvailabilityID(statsID)
	if !ok {
		return availability.Record{}, false
	}
	rec, ok := records[availabilityID]
	return rec, ok
}

// ByeWeeks derives each team's bye as the one regular-season week in
// 1..weeks with no home or away game. Teams with zero or several
// candidates are logged and left out.
func ByeWeeks(games []store.ScheduledGame, weeks int, logger logrus.FieldLogger) map[string]int {
	if weeks <= 0 {
		weeks = 18
	}

	played := make(map[string]map[int]bool)
	mark := func(team string, week int) {
		team = strings.TrimSpace(team)
		if team == "" {
			return
		}
		if played[team] == nil {
			played[team] = make(map[int]bool)
		}
		played[team][week] = true
	}
	for _, g := range games {
		if g.GameType != "" && g.GameType != "REG" {
			continue
		}
		mark(g.HomeTeam, g.Week)
		mark(g.AwayTeam, g.Week)
	}

	teams := make([]string, 0, len(played))
	for team := range played {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	byes := make(map[string]int, len(teams))
	for _, team := range teams {
		var candidates []int
		for w := 1; w <= weeks; w++ {
			if !played[team][w] {
				candidates = append(candidates, w)
			}
		}
		switch len(candidates) {
		case 1:
			byes[team] = candidates[0]
		case 0:
			logger.Warnf("⚠️  No bye week found for %s", team)
		default:
			logger.Warnf("⚠️  Multiple bye week candidates for %s: %v", team, candidates)
		}
	}

	return byes
}
