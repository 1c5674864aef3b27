// Package projector turns a player's scored game log into a point estimate
// with a 95% confidence band. Each position weights recent form, the current
// season and the career average differently.
package projector

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/fortuna/ceres/internal/scoring"
)

var (
	// ErrNotTrained is returned by predictions made before Fit.
	ErrNotTrained = errors.New("projector must be fitted before making predictions")
	// ErrEmptyCorpus is returned by Fit when the corpus has no games for the position.
	ErrEmptyCorpus = errors.New("no training games for position")
)

const (
	confidenceLevel = 0.95
	zScore          = 1.96
	recentWindow    = 3
)

// ScoredGame is one game with its fantasy points already computed.
type ScoredGame struct {
	PlayerID string  `json:"player_id"`
	Position string  `json:"position"`
	Season   int     `json:"season"`
	Week     int     `json:"week"`
	Points   float64 `json:"points"`
}

// History is one player's games, most recent first.
type History []ScoredGame

// NewHistory copies games and orders them most recent first.
func NewHistory(games []ScoredGame) History {
	h := append(History(nil), games...)
	sort.SliceStable(h, func(i, j int) bool {
		if h[i].Season != h[j].Season {
			return h[i].Season > h[j].Season
		}
		return h[i].Week > h[j].Week
	})
	return h
}

// Projection is a point estimate with its confidence band.
// Lower <= Points <= Upper and Lower >= 0 always hold.
type Projection struct {
	Points          float64 `json:"projected_points"`
	Lower           float64 `json:"confidence_lower"`
	Upper           float64 `json:"confidence_upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
	ExpectedGames   float64 `json:"expected_games,omitempty"`
}

// SeasonalOptions tunes the season-long estimate.
type SeasonalOptions struct {
	ExpectedGames float64
	InjuryRisk    float64
}

// DefaultSeasonalOptions expects 17 games at 90% availability.
func DefaultSeasonalOptions() SeasonalOptions {
	return SeasonalOptions{ExpectedGames: 17, InjuryRisk: 0.9}
}

// Baseline holds the position-wide statistics learned by Fit.
type Baseline struct {
	Mean           float64 `json:"mean"`
	Std            float64 `json:"std"`
	GamesPerSeason float64 `json:"games_per_season"`
	Games          int     `json:"games"`
}

// Weights blend the three averaging windows. They sum to 1.
type Weights struct {
	Recent float64 `json:"recent"`
	Season float64 `json:"season"`
	Career float64 `json:"career"`
}

// Projector is implemented once per position.
type Projector interface {
	Position() string
	Weights() Weights
	Fit(corpus []ScoredGame) error
	Trained() bool
	Baseline() Baseline
	PredictWeekly(h History, week, season int) (Projection, error)
	PredictSeasonal(h History, season int, opts SeasonalOptions) (Projection, error)
}

// DefaultSet returns a fresh projector for every supported position.
func DefaultSet() map[string]Projector {
	return map[string]Projector{
		"QB": NewQuarterback(),
		"RB": NewRunningBack(),
		"WR": NewWideReceiver(),
		"TE": NewTightEnd(),
	}
}

// Supported reports whether a position has a projector in DefaultSet.
func Supported(position string) bool {
	switch strings.ToUpper(position) {
	case "QB", "RB", "WR", "TE":
		return true
	}
	return false
}

type playerSeason struct {
	playerID string
	season   int
}

// weighted is the shared algorithm; position types embed it with their weights.
type weighted struct {
	position string
	weights  Weights
	trained  bool
	baseline Baseline
}

func (m *weighted) Position() string   { return m.position }
func (m *weighted) Weights() Weights   { return m.weights }
func (m *weighted) Trained() bool      { return m.trained }
func (m *weighted) Baseline() Baseline { return m.baseline }

// Fit learns the position mean, sample standard deviation and average
// games per player-season from games matching the position. Refitting
// replaces the previous baseline.
func (m *weighted) Fit(corpus []ScoredGame) error {
	var points []float64
	perSeason := make(map[playerSeason]int)

	for _, g := range corpus {
		if !strings.EqualFold(g.Position, m.position) {
			continue
		}
		points = append(points, g.Points)
		perSeason[playerSeason{g.PlayerID, g.Season}]++
	}

	if len(points) == 0 {
		return ErrEmptyCorpus
	}

	total := 0
	for _, n := range perSeason {
		total += n
	}

	m.baseline = Baseline{
		Mean:           mean(points),
		Std:            sampleStd(points),
		GamesPerSeason: float64(total) / float64(len(perSeason)),
		Games:          len(points),
	}
	m.trained = true
	return nil
}

// PredictWeekly blends last-3, current-season and career averages. A blend of
// exactly zero means no usable history and falls back to the position mean.
func (m *weighted) PredictWeekly(h History, week, season int) (Projection, error) {
	if !m.trained {
		return Projection{}, ErrNotTrained
	}

	all := make([]float64, 0, len(h))
	var current []float64
	for _, g := range h {
		all = append(all, g.Points)
		if g.Season == season {
			current = append(current, g.Points)
		}
	}

	recent := all
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}

	estimate := m.weights.Recent*mean(recent) +
		m.weights.Season*mean(current) +
		m.weights.Career*mean(all)

	if estimate == 0 {
		estimate = m.baseline.Mean
	}

	std := m.baseline.Std
	if len(all) > 1 {
		std = sampleStd(all)
	}

	return validate(Projection{
		Points:          scoring.Round(estimate, 2),
		Lower:           scoring.Round(math.Max(0, estimate-zScore*std), 2),
		Upper:           scoring.Round(estimate+zScore*std, 2),
		ConfidenceLevel: confidenceLevel,
	}), nil
}

// PredictSeasonal scales a week-1 projection by expected games and injury risk.
// The weekly band's implied deviation grows with the square root of games.
func (m *weighted) PredictSeasonal(h History, season int, opts SeasonalOptions) (Projection, error) {
	if !m.trained {
		return Projection{}, ErrNotTrained
	}

	defaults := DefaultSeasonalOptions()
	if opts.ExpectedGames <= 0 {
		opts.ExpectedGames = defaults.ExpectedGames
	}
	if opts.InjuryRisk <= 0 {
		opts.InjuryRisk = defaults.InjuryRisk
	}

	weekly, err := m.PredictWeekly(h, 1, season)
	if err != nil {
		return Projection{}, err
	}

	seasonal := weekly.Points * opts.ExpectedGames * opts.InjuryRisk
	weeklyStd := (weekly.Upper - weekly.Lower) / (2 * zScore)
	seasonalStd := weeklyStd * math.Sqrt(opts.ExpectedGames)

	return validate(Projection{
		Points:          scoring.Round(seasonal, 1),
		Lower:           scoring.Round(math.Max(0, seasonal-zScore*seasonalStd), 1),
		Upper:           scoring.Round(seasonal+zScore*seasonalStd, 1),
		ConfidenceLevel: confidenceLevel,
		ExpectedGames:   opts.ExpectedGames * opts.InjuryRisk,
	}), nil
}

// validate enforces 0 <= Lower <= Points <= Upper.
func validate(p Projection) Projection {
	p.Points = math.Max(0, p.Points)
	p.Lower = math.Max(0, math.Min(p.Lower, p.Points))
	p.Upper = math.Max(p.Upper, p.Points)
	return p
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mu := mean(values)
	ss := 0.0
	for _, v := range values {
		ss += (v - mu) * (v - mu)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
