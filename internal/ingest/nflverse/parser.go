// Package nflverse loads historical stats, rosters and schedules from the
// nflverse CSV releases into Postgres.
package nflverse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fortuna/ceres/internal/store"
)

// ErrNotPublished means the requested file does not exist upstream.
var ErrNotPublished = errors.New("nflverse file not published")

// table gives name-based access to CSV rows. Missing columns read as "".
type table struct {
	cols   map[string]int
	reader *csv.Reader
}

func newTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return &table{cols: cols, reader: reader}, nil
}

func (t *table) has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

func (t *table) next() ([]string, error) {
	return t.reader.Read()
}

// str returns the first non-empty value among the named columns.
func (t *table) str(record []string, names ...string) string {
	for _, name := range names {
		i, ok := t.cols[name]
		if !ok || i >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[i])
		if v != "" && v != "NA" {
			return v
		}
	}
	return ""
}

func (t *table) num(record []string, names ...string) float64 {
	v := t.str(record, names...)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func (t *table) int(record []string, names ...string) int {
	return int(t.num(record, names...))
}

// ParsePlayerStats reads a player_stats CSV. Fumbles lost are summed across
// rushing, receiving and sack fumbles.
func ParsePlayerStats(r io.Reader) ([]store.GameRecord, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if !t.has("player_id") || !t.has("season") || !t.has("week") {
		return nil, fmt.Errorf("player stats file missing player_id, season or week column")
	}

	var records []store.GameRecord
	for {
		row, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading player stats: %w", err)
		}

		id := t.str(row, "player_id")
		if id == "" {
			continue
		}

		seasonType := t.str(row, "season_type")
		if seasonType == "" {
			seasonType = "REG"
		}

		records = append(records, store.GameRecord{
			PlayerID:       id,
			PlayerName:     t.str(row, "player_display_name", "player_name"),
			Position:       t.str(row, "position"),
			Team:           t.str(row, "recent_team", "team"),
			Season:         t.int(row, "season"),
			Week:           t.int(row, "week"),
			SeasonType:     seasonType,
			PassingYards:   t.num(row, "passing_yards"),
			PassingTDs:     t.num(row, "passing_tds"),
			Interceptions:  t.num(row, "interceptions", "passing_interceptions"),
			Passing2Pt:     t.num(row, "passing_2pt_conversions"),
			RushingYards:   t.num(row, "rushing_yards"),
			RushingTDs:     t.num(row, "rushing_tds"),
			Rushing2Pt:     t.num(row, "rushing_2pt_conversions"),
			Receptions:     t.num(row, "receptions"),
			ReceivingYards: t.num(row, "receiving_yards"),
			ReceivingTDs:   t.num(row, "receiving_tds"),
			Receiving2Pt:   t.num(row, "receiving_2pt_conversions"),
			FumblesLost: t.num(row, "rushing_fumbles_lost") +
				t.num(row, "receiving_fumbles_lost") +
				t.num(row, "sack_fumbles_lost"),
		})
	}

	return records, nil
}

// ParseRosters reads a roster CSV. Rows without a GSIS id are skipped.
func ParseRosters(r io.Reader) ([]store.RosterEntry, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if !t.has("gsis_id") {
		return nil, fmt.Errorf("roster file missing gsis_id column")
	}

	var entries []store.RosterEntry
	for {
		row, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rosters: %w", err)
		}

		id := t.str(row, "gsis_id")
		if id == "" {
			continue
		}

		entries = append(entries, store.RosterEntry{
			Season:    t.int(row, "season"),
			PlayerID:  id,
			FullName:  t.str(row, "full_name", "player_name"),
			Position:  t.str(row, "position"),
			Team:      t.str(row, "team"),
			Status:    t.str(row, "status"),
			SleeperID: t.str(row, "sleeper_id"),
		})
	}

	return entries, nil
}

// ParseSchedule reads games.csv, keeping only the given season.
func ParseSchedule(r io.Reader, season int) ([]store.ScheduledGame, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if !t.has("game_id") || !t.has("home_team") || !t.has("away_team") {
		return nil, fmt.Errorf("schedule file missing game_id, home_team or away_team column")
	}

	var games []store.ScheduledGame
	for {
		row, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading schedule: %w", err)
		}

		if t.int(row, "season") != season {
			continue
		}

		games = append(games, store.ScheduledGame{
			GameID:   t.str(row, "game_id"),
			Season:   season,
			GameType: t.str(row, "game_type"),
			Week:     t.int(row, "week"),
			HomeTeam: t.str(row, "home_team"),
			AwayTeam: t.str(row, "away_team"),
		})
	}

	return games, nil
}

// MappingsFromRosters builds id mappings from roster rows that carry a Sleeper id.
func MappingsFromRosters(entries []store.RosterEntry) []store.PlayerIDMapping {
	var mappings []store.PlayerIDMapping
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.PlayerID == "" || e.SleeperID == "" || seen[e.PlayerID] {
			continue
		}
		seen[e.PlayerID] = true
		mappings = append(mappings, store.PlayerIDMapping{
			GSISID:    e.PlayerID,
			SleeperID: e.SleeperID,
			Name:      e.FullName,
			Position:  e.Position,
			Team:      e.Team,
			Status:    e.Status,
		})
	}
	return mappings
}
