package reconciliation

import (
	"testing"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Odell Beckham Jr.":   "odell beckham",
		"Amon-Ra St. Brown":   "amonra st brown",
		"  Ja'Marr   Chase ":  "jamarr chase",
		"Michael Pittman III": "michael pittman",
		"":                    "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func sampleRecords() availability.Records {
	return availability.Records{
		"100": {ID: "100", FullName: "Josh Allen", Position: "QB", Team: "BUF", Status: "Active"},
		"101": {ID: "101", FullName: "Josh Allen", Position: "LB", Team: "JAX"},
		"200": {ID: "200", FullName: "Amon-Ra St. Brown", Position: "WR", Team: "DET", InjuryStatus: "Questionable"},
		"300": {ID: "300", FullName: "Mike Williams", Position: "WR", Team: "NYJ"},
		"301": {ID: "301", FullName: "Mike Williams", Position: "WR", Team: "LAC"},
		"400": {ID: "400", FullName: "Davante Adams", Position: "WR", Team: "LV"},
	}
}

func TestMatcher_Find(t *testing.T) {
	m := NewMatcher(sampleRecords())

	if rec, ok, _ := m.Find("Josh Allen", "QB", "BUF"); !ok || rec.ID != "100" {
		t.Errorf("position should disambiguate: %+v %v", rec, ok)
	}
	if rec, ok, _ := m.Find("Amon-Ra St. Brown", "WR", "DET"); !ok || rec.ID != "200" {
		t.Errorf("punctuation should normalize: %+v %v", rec, ok)
	}
	if rec, ok, _ := m.Find("Mike Williams", "WR", "NYJ"); !ok || rec.ID != "300" {
		t.Errorf("team should disambiguate: %+v %v", rec, ok)
	}
	if rec, ok, _ := m.Find("Davante Adams", "WR", "OAK"); !ok || rec.ID != "400" {
		t.Errorf("relocated team code should match: %+v %v", rec, ok)
	}
	if _, ok, ambiguous := m.Find("Mike Williams", "WR", "PIT"); ok || !ambiguous {
		t.Errorf("expected ambiguous, got ok=%v ambiguous=%v", ok, ambiguous)
	}
	if _, ok, ambiguous := m.Find("Nobody Here", "RB", "KC"); ok || ambiguous {
		t.Error("unknown name should be unmatched")
	}
}

func TestEngine_Reconcile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	roster := []store.RosterEntry{
		{PlayerID: "00-1", FullName: "Josh Allen", Position: "QB", Team: "BUF"},
		{PlayerID: "00-2", FullName: "Amon-Ra St. Brown", Position: "WR", Team: "DET", SleeperID: "200"},
		{PlayerID: "00-3", FullName: "Mike Williams", Position: "WR", Team: "PIT"},
		{PlayerID: "00-4", FullName: "Practice Squad Guy", Position: "RB", Team: "KC"},
		{PlayerID: "00-5", FullName: "Josh Allen", Position: "QB", Team: "BUF"},
		{PlayerID: "00-1", FullName: "Josh Allen", Position: "QB", Team: "BUF"},
	}

	rows, metrics := NewEngine(PreferRoster, logger).Reconcile(roster, sampleRecords())

	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].GSISID != "00-1" || rows[0].SleeperID != "100" || rows[0].Status != "Active" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].SleeperID != "200" || rows[1].InjuryStatus != "Questionable" {
		t.Errorf("row 1 = %+v", rows[1])
	}

	want := Metrics{Total: 5, FromRoster: 1, NameMatched: 1, Ambiguous: 1, Unmatched: 1, Conflicts: 1}
	metrics.RunAt = want.RunAt
	if metrics != want {
		t.Errorf("metrics = %+v, want %+v", metrics, want)
	}
}

func TestEngine_NameOnlyIgnoresRosterIDs(t *testing.T) {
	logger, _ := test.NewNullLogger()
	roster := []store.RosterEntry{
		{PlayerID: "00-9", FullName: "Davante Adams", Position: "WR", Team: "LV", SleeperID: "999"},
	}

	rows, metrics := NewEngine(NameOnly, logger).Reconcile(roster, sampleRecords())
	if len(rows) != 1 || rows[0].SleeperID != "400" || metrics.NameMatched != 1 {
		t.Errorf("rows = %+v, metrics = %+v", rows, metrics)
	}
}
