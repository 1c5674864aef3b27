package engine

import (
	"sort"
	"time"
)

// Kind distinguishes weekly and season-long tables.
type Kind string

const (
	KindWeekly   Kind = "weekly"
	KindSeasonal Kind = "seasonal"
)

// Reasons recorded on a zeroed row.
const (
	ZeroedBye     = "bye"
	ZeroedInjury  = "injury"
	ZeroedBenched = "benched"
)

// Row is one player's projection plus metadata and availability trace.
type Row struct {
	PlayerID        string  `json:"player_id"`
	PlayerName      string  `json:"player_name"`
	Position        string  `json:"position"`
	Team            string  `json:"team"`
	Week            int     `json:"week,omitempty"`
	Season          int     `json:"season"`
	Points          float64 `json:"projected_points"`
	Lower           float64 `json:"confidence_lower"`
	Upper           float64 `json:"confidence_upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
	ExpectedGames   float64 `json:"expected_games,omitempty"`
	RosterStatus    string  `json:"roster_status,omitempty"`
	InjuryStatus    string  `json:"injury_status,omitempty"`
	DepthChartOrder *int    `json:"depth_chart_order,omitempty"`
	ZeroedBy        string  `json:"zeroed_by,omitempty"`
}

// zero clears the estimate and both bounds together.
func (r *Row) zero(reason string) {
	r.Points, r.Lower, r.Upper = 0, 0, 0
	if r.ZeroedBy == "" {
		r.ZeroedBy = reason
	}
}

// Table is the ranked output of one projection run. Filter stages never
// add or remove rows.
type Table struct {
	RunID       string    `json:"run_id"`
	Kind        Kind      `json:"kind"`
	Scoring     string    `json:"scoring"`
	Week        int       `json:"week,omitempty"`
	Season      int       `json:"season"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
}

// Clone returns a copy whose rows can be modified without touching t.
func (t Table) Clone() Table {
	out := t
	out.Rows = make([]Row, len(t.Rows))
	copy(out.Rows, t.Rows)
	return out
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Zeroed counts rows zeroed for the given reason, or for any reason if empty.
func (t Table) Zeroed(reason string) int {
	n := 0
	for _, r := range t.Rows {
		if r.ZeroedBy != "" && (reason == "" || r.ZeroedBy == reason) {
			n++
		}
	}
	return n
}

// Top returns at most n rows from the head of the table.
func (t Table) Top(n int) []Row {
	if n <= 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].PlayerName < rows[j].PlayerName
	})
}
