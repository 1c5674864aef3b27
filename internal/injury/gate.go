// Package injury decides whether a player's roster and injury designations
// rule them out of a game.
package injury

import (
	"github.com/fortuna/ceres/internal/availability"
	"github.com/sirupsen/logrus"
)

// Decision is the gate outcome for one player.
type Decision int

const (
	Pass Decision = iota
	Zero
)

func (d Decision) String() string {
	if d == Zero {
		return "zero"
	}
	return "pass"
}

// Roster statuses that mean a long-term absence. Checked before injury designations.
var rosterAbsent = map[string]bool{
	"IR":             true,
	"PUP":            true,
	"NFI":            true,
	"SUSPENDED":      true,
	"INACTIVE":       true,
	"PRACTICE_SQUAD": true,
}

// Injury designations that mean the player will not play this week.
var injuryAbsent = map[string]bool{
	"OUT":      true,
	"DOUBTFUL": true,
	"IR":       true,
	"PUP":      true,
}

// Normalize maps a status onto the gate's vocabulary. Long-form Sleeper
// names such as "Injured Reserve" become their short codes.
func Normalize(status string) string {
	return availability.NormalizeStatus(status)
}

// Decide applies the rules in order: roster status, then injury designation.
// Empty or unknown values pass.
func Decide(rosterStatus, injuryStatus string) Decision {
	if rosterAbsent[Normalize(rosterStatus)] {
		return Zero
	}
	if injuryAbsent[Normalize(injuryStatus)] {
		return Zero
	}
	return Pass
}

// DecideRecord is Decide over an availability record.
func DecideRecord(r availability.Record) Decision {
	return Decide(r.Status, r.InjuryStatus)
}

// ApplyGate returns 0 for a zeroed player and points unchanged otherwise.
func ApplyGate(points float64, rosterStatus, injuryStatus string) float64 {
	if Decide(rosterStatus, injuryStatus) == Zero {
		return 0
	}
	return points
}

// Summary partitions an availability set for logging.
type Summary struct {
	Zeroed       int `json:"zeroed"`
	Questionable int `json:"questionable"`
	Active       int `json:"active"`
	Total        int `json:"total"`
}

// Summarize counts zeroed, questionable and everyone else. A player counts
// as questionable only if the gate did not already zero them.
func Summarize(records availability.Records) Summary {
	summary := Summary{Total: len(records)}

	for _, r := range records {
		switch {
		case DecideRecord(r) == Zero:
			summary.Zeroed++
		case Normalize(r.InjuryStatus) == "QUESTIONABLE":
			summary.Questionable++
		default:
			summary.Active++
		}
	}

	return summary
}

// LogSummary writes the summary in the InjuryGate line format.
func LogSummary(logger logrus.FieldLogger, summary Summary, source string) {
	if source == "" {
		source = "unknown"
	}
	logger.WithField("component", "injury-gate").Infof(
		"InjuryGate: zeroed=%d, questionable=%d, active=%d, source=%s",
		summary.Zeroed, summary.Questionable, summary.Active, source,
	)
}
