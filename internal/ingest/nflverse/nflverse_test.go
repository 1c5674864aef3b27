package nflverse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
)

const statsCSV = `player_id,player_display_name,position,recent_team,season,week,season_type,passing_yards,passing_tds,interceptions,rushing_yards,rushing_tds,receptions,receiving_yards,receiving_tds,rushing_fumbles_lost,receiving_fumbles_lost,sack_fumbles_lost,passing_2pt_conversions
00-0033873,Patrick Mahomes,QB,KC,2023,1,REG,226,2,1,45,0,0,0,0,0,0,1,NA
00-0036322,Justin Jefferson,WR,MIN,2023,1,REG,0,0,0,0,0,9,150,0,0,1,0,
,Unknown,WR,MIN,2023,1,REG,0,0,0,0,0,0,0,0,0,0,0,
`

const rosterCSV = `season,team,position,status,full_name,gsis_id,sleeper_id
2023,KC,QB,ACT,Patrick Mahomes,00-0033873,4046
2023,MIN,WR,ACT,Justin Jefferson,00-0036322,NA
2023,MIN,WR,ACT,No Id,,123
`

const gamesCSV = `game_id,season,game_type,week,away_team,home_team
2022_01_BUF_LA,2022,REG,1,BUF,LA
2023_01_DET_KC,2023,REG,1,DET,KC
2023_02_KC_JAX,2023,REG,2,KC,JAX
`

func TestParsePlayerStats(t *testing.T) {
	records, err := ParsePlayerStats(strings.NewReader(statsCSV))
	if err != nil {
		t.Fatalf("ParsePlayerStats error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	qb := records[0]
	if qb.PlayerName != "Patrick Mahomes" || qb.Team != "KC" || qb.PassingYards != 226 {
		t.Errorf("unexpected QB record: %+v", qb)
	}
	if qb.Passing2Pt != 0 {
		t.Errorf("NA should parse as 0, got %v", qb.Passing2Pt)
	}
	if qb.FumblesLost != 1 {
		t.Errorf("QB fumbles lost = %v, want 1", qb.FumblesLost)
	}
	if records[1].FumblesLost != 1 || records[1].Receptions != 9 {
		t.Errorf("unexpected WR record: %+v", records[1])
	}
}

func TestParsePlayerStats_ColumnAliases(t *testing.T) {
	data := "player_id,player_name,team,season,week,passing_interceptions\nA,Short Name,BUF,2024,3,2\n"
	records, err := ParsePlayerStats(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePlayerStats error: %v", err)
	}
	r := records[0]
	if r.PlayerName != "Short Name" || r.Team != "BUF" || r.Interceptions != 2 || r.SeasonType != "REG" {
		t.Errorf("aliases not applied: %+v", r)
	}
}

func TestParsePlayerStats_MissingColumns(t *testing.T) {
	if _, err := ParsePlayerStats(strings.NewReader("name,team\nx,y\n")); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestParsePlayerStats_ByteOrderMarkHeader(t *testing.T) {
	data := "\ufeffplayer_id,player_name,team,season,week\n00-0033873,Patrick Mahomes,KC,2023,1\n"
	records, err := ParsePlayerStats(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePlayerStats error: %v", err)
	}
	if len(records) != 1 || records[0].PlayerID != "00-0033873" {
		t.Errorf("records = %+v", records)
	}
}

func TestParseRostersAndMappings(t *testing.T) {
	entries, err := ParseRosters(strings.NewReader(rosterCSV))
	if err != nil {
		t.Fatalf("ParseRosters error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	mappings := MappingsFromRosters(entries)
	if len(mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(mappings))
	}
	if mappings[0].GSISID != "00-0033873" || mappings[0].SleeperID != "4046" {
		t.Errorf("unexpected mapping: %+v", mappings[0])
	}
}

func TestParseSchedule_FiltersSeason(t *testing.T) {
	games, err := ParseSchedule(strings.NewReader(gamesCSV), 2023)
	if err != nil {
		t.Fatalf("ParseSchedule error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	if games[0].HomeTeam != "KC" || games[1].Week != 2 {
		t.Errorf("unexpected games: %+v", games)
	}
}

func TestParseDatasets(t *testing.T) {
	all, err := ParseDatasets("")
	if err != nil || len(all) != 3 {
		t.Fatalf("ParseDatasets(\"\") = %v, %v", all, err)
	}
	got, err := ParseDatasets(" Stats, schedules ")
	if err != nil || len(got) != 2 || got[0] != DatasetStats || got[1] != DatasetSchedules {
		t.Fatalf("ParseDatasets = %v, %v", got, err)
	}
	if _, err := ParseDatasets("stats,injuries"); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

type recordingWriters struct {
	stats    []store.GameRecord
	rosters  []store.RosterEntry
	games    []store.ScheduledGame
	mappings []store.PlayerIDMapping
}

func (w *recordingWriters) UpsertGameRecords(_ context.Context, r []store.GameRecord) (int, error) {
	w.stats = append(w.stats, r...)
	return len(r), nil
}

func (w *recordingWriters) UpsertRoster(_ context.Context, e []store.RosterEntry) (int, error) {
	w.rosters = append(w.rosters, e...)
	return len(e), nil
}

func (w *recordingWriters) UpsertSchedule(_ context.Context, g []store.ScheduledGame) (int, error) {
	w.games = append(w.games, g...)
	return len(g), nil
}

func (w *recordingWriters) Upsert(_ context.Context, m []store.PlayerIDMapping) (int, error) {
	w.mappings = append(w.mappings, m...)
	return len(m), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/player_stats/player_stats_2023.csv", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(statsCSV))
	})
	mux.HandleFunc("/rosters/roster_2023.csv", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(rosterCSV))
	})
	mux.HandleFunc("/games.csv", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(gamesCSV))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestIngester(t *testing.T, w *recordingWriters) *Ingester {
	srv := newTestServer(t)
	logger, _ := test.NewNullLogger()
	client := NewClient(srv.URL, srv.URL+"/games.csv", logger)
	return NewIngester(client, Writers{Stats: w, Rosters: w, Schedules: w, Mappings: w}, logger)
}

func TestIngest_AllDatasets(t *testing.T) {
	w := &recordingWriters{}
	ing := newTestIngester(t, w)
	ctx := context.Background()

	for _, d := range AllDatasets() {
		if _, err := ing.Ingest(ctx, d, 2023, false); err != nil {
			t.Fatalf("Ingest(%s) error: %v", d, err)
		}
	}

	if len(w.stats) != 2 || len(w.rosters) != 2 || len(w.games) != 2 || len(w.mappings) != 1 {
		t.Errorf("writes = %d stats, %d rosters, %d games, %d mappings",
			len(w.stats), len(w.rosters), len(w.games), len(w.mappings))
	}
}

func TestIngest_DryRunWritesNothing(t *testing.T) {
	w := &recordingWriters{}
	ing := newTestIngester(t, w)

	res, err := ing.Ingest(context.Background(), DatasetRosters, 2023, true)
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if res.Parsed != 2 || res.Written != 0 || res.Mappings != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(w.rosters) != 0 || len(w.mappings) != 0 {
		t.Error("dry run wrote rows")
	}
}

func TestIngest_UnpublishedSeason(t *testing.T) {
	ing := newTestIngester(t, &recordingWriters{})

	_, err := ing.Ingest(context.Background(), DatasetStats, 2031, false)
	if !errors.Is(err, ErrNotPublished) {
		t.Fatalf("err = %v, want ErrNotPublished", err)
	}
}
