package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestMapper_Bidirectional(t *testing.T) {
	m := NewMapper([]store.PlayerIDMapping{
		{GSISID: "00-0033873", SleeperID: "4046", Name: "Patrick Mahomes"},
		{GSISID: "00-0036355", SleeperID: "6794", Name: "Justin Jefferson"},
	})

	if got, ok := m.ToAvailabilityID("00-0033873"); !ok || got != "4046" {
		t.Errorf("ToAvailabilityID = %q, %v, want 4046, true", got, ok)
	}
	if got, ok := m.ToStatsID("6794"); !ok || got != "00-0036355" {
		t.Errorf("ToStatsID = %q, %v, want 00-0036355, true", got, ok)
	}
	if !m.HasMapping("00-0036355") {
		t.Error("HasMapping(00-0036355) = false, want true")
	}
	if m.HasMapping("00-0099999") {
		t.Error("HasMapping(unknown) = true, want false")
	}
	if _, ok := m.ToAvailabilityID("00-0099999"); ok {
		t.Error("ToAvailabilityID(unknown) ok = true, want false")
	}
}

func TestMapper_SkipsMalformedAndDuplicateRows(t *testing.T) {
	m := NewMapper([]store.PlayerIDMapping{
		{GSISID: "A", SleeperID: "1"},
		{GSISID: "", SleeperID: "2"},
		{GSISID: "B", SleeperID: "  "},
		{GSISID: "A", SleeperID: "3"},
		{GSISID: "C", SleeperID: "1"},
		{GSISID: " D ", SleeperID: "4"},
	})

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if got, _ := m.ToAvailabilityID("A"); got != "1" {
		t.Errorf("first row should win, got %q", got)
	}
	if got, ok := m.ToAvailabilityID("D"); !ok || got != "4" {
		t.Errorf("trimmed id lookup = %q, %v", got, ok)
	}
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"gsis_id,sleeper_id,name,position,team,status,injury_status",
		"00-0033873,4046,Patrick Mahomes,QB,KC,Active,",
		"00-0036355,,Justin Jefferson,WR,MIN,Active,",
		"00-0035710",
		"00-0038120,9509,Bijan Robinson,RB,ATL,Active,Questionable",
	}, "\n")

	rows, skipped, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV error: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	m := NewMapper(rows)
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
	row, ok := m.Row("00-0038120")
	if !ok || row.InjuryStatus != "Questionable" || row.Team != "ATL" {
		t.Errorf("Row = %+v, %v", row, ok)
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("gsis_id,name\nA,x\n"))
	if err == nil {
		t.Fatal("expected error for missing sleeper_id column")
	}
}

func TestLoadCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []store.PlayerIDMapping{
		{GSISID: "00-0033873", SleeperID: "4046", Name: "Patrick Mahomes", Position: "QB", Team: "KC"},
	}
	if err := WriteCSV(f, want); err != nil {
		t.Fatal(err)
	}
	f.Close()

	logger, _ := test.NewNullLogger()
	m, err := LoadCSV(path, logger)
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	row, ok := m.Row("00-0033873")
	if !ok || row.Name != "Patrick Mahomes" || row.Position != "QB" {
		t.Errorf("Row = %+v, %v", row, ok)
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), logger)
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("expected a warning for the missing file")
	}
}

type stubMappings struct {
	rows []store.PlayerIDMapping
	err  error
}

func (s stubMappings) GetAll(context.Context) ([]store.PlayerIDMapping, error) {
	return s.rows, s.err
}

func TestLoad_PrefersStoredRows(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := stubMappings{rows: []store.PlayerIDMapping{{GSISID: "00-1", SleeperID: "11"}}}

	m, err := Load(context.Background(), src, filepath.Join(t.TempDir(), "none.csv"), logger)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if id, ok := m.ToAvailabilityID("00-1"); !ok || id != "11" {
		t.Errorf("ToAvailabilityID = %q, %v", id, ok)
	}
}

func TestLoad_FallsBackToCSV(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "map.csv")
	if err := os.WriteFile(path, []byte("gsis_id,sleeper_id\n00-2,22\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, src := range []MappingSource{nil, stubMappings{}, stubMappings{err: errors.New("db down")}} {
		m, err := Load(context.Background(), src, path, logger)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if !m.HasMapping("00-2") {
			t.Errorf("source %v: CSV mapping not loaded", src)
		}
	}
}
