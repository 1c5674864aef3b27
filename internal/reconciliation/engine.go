// Package reconciliation builds the stats-id to availability-id mapping by
// matching roster entries against availability records.
package reconciliation

import (
	"sort"
	"time"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus"
)

// Strategy decides which evidence links two ids.
type Strategy string

const (
	// PreferRoster trusts the Sleeper id carried on the roster row and falls
	// back to name matching.
	PreferRoster Strategy = "prefer_roster"

	// NameOnly ignores roster-provided ids.
	NameOnly Strategy = "name_only"
)

// Metrics tracks reconciliation statistics
type Metrics struct {
	Total       int       `json:"total"`
	FromRoster  int       `json:"from_roster"`
	NameMatched int       `json:"name_matched"`
	Ambiguous   int       `json:"ambiguous"`
	Unmatched   int       `json:"unmatched"`
	Conflicts   int       `json:"conflicts"`
	RunAt       time.Time `json:"run_at"`
}

// Engine reconciles roster ids with availability ids
type Engine struct {
	strategy Strategy
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewEngine creates a new reconciliation engine
func NewEngine(strategy Strategy, logger logrus.FieldLogger) *Engine {
	if strategy == "" {
		strategy = PreferRoster
	}
	return &Engine{
		strategy: strategy,
		logger:   logger.WithField("component", "reconciliation"),
		now:      time.Now,
	}
}

// Reconcile produces one mapping row per roster player that can be linked.
// A Sleeper id already claimed by another player is a conflict and the later
// claim is dropped. Rows carry the availability record's current status.
func (e *Engine) Reconcile(roster []store.RosterEntry, records availability.Records) ([]store.PlayerIDMapping, Metrics) {
	metrics := Metrics{RunAt: e.now().UTC()}
	matcher := NewMatcher(records)

	entries := append([]store.RosterEntry(nil), roster...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].PlayerID < entries[j].PlayerID })

	seenPlayer := make(map[string]bool)
	claimed := make(map[string]string)
	var rows []store.PlayerIDMapping

	for _, entry := range entries {
		if entry.PlayerID == "" || seenPlayer[entry.PlayerID] {
			continue
		}
		seenPlayer[entry.PlayerID] = true
		metrics.Total++

		rec, how := e.link(entry, records, matcher)
		switch how {
		case "ambiguous":
			metrics.Ambiguous++
			continue
		case "":
			metrics.Unmatched++
			continue
		}

		if owner, taken := claimed[rec.ID]; taken && owner != entry.PlayerID {
			metrics.Conflicts++
			e.logger.Debugf("Sleeper id %s already linked to %s, skipping %s", rec.ID, owner, entry.PlayerID)
			continue
		}
		claimed[rec.ID] = entry.PlayerID

		if how == "roster" {
			metrics.FromRoster++
		} else {
			metrics.NameMatched++
		}

		rows = append(rows, store.PlayerIDMapping{
			GSISID:       entry.PlayerID,
			SleeperID:    rec.ID,
			Name:         firstNonEmpty(rec.FullName, entry.FullName),
			Position:     firstNonEmpty(rec.Position, entry.Position),
			Team:         firstNonEmpty(rec.Team, entry.Team),
			Status:       rec.Status,
			InjuryStatus: rec.InjuryStatus,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"total":        metrics.Total,
		"from_roster":  metrics.FromRoster,
		"name_matched": metrics.NameMatched,
		"ambiguous":    metrics.Ambiguous,
		"unmatched":    metrics.Unmatched,
		"conflicts":    metrics.Conflicts,
	}).Info("✓ Reconciled player ids")

	return rows, metrics
}

func (e *Engine) link(entry store.RosterEntry, records availability.Records, matcher *Matcher) (availability.Record, string) {
	if e.strategy == PreferRoster && entry.SleeperID != "" {
		if rec, ok := records[entry.SleeperID]; ok {
			return rec, "roster"
		}
		// The id is trusted even when the availability feed has dropped the player.
		return availability.Record{ID: entry.SleeperID}, "roster"
	}

	rec, ok, ambiguous := matcher.Find(entry.FullName, entry.Position, entry.Team)
	switch {
	case ambiguous:
		return availability.Record{}, "ambiguous"
	case ok:
		return rec, "name"
	default:
		return availability.Record{}, ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
