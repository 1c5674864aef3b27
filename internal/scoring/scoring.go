package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Stat names understood by a Policy. They match the nflverse player_stats columns.
const (
	StatPassingYards   = "passing_yards"
	StatPassingTDs     = "passing_tds"
	StatInterceptions  = "interceptions"
	StatPassing2Pt     = "passing_2pt"
	StatRushingYards   = "rushing_yards"
	StatRushingTDs     = "rushing_tds"
	StatRushing2Pt     = "rushing_2pt"
	StatReceivingYards = "receiving_yards"
	StatReceivingTDs   = "receiving_tds"
	StatReceiving2Pt   = "receiving_2pt"
	StatReceptions     = "receptions"
	StatFumblesLost    = "fumbles_lost"
)

// Preset names a scoring ruleset.
type Preset string

const (
	PresetStandard Preset = "standard"
	PresetPPR      Preset = "ppr"
	PresetHalfPPR  Preset = "half_ppr"
)

// ErrUnknownPreset is returned by NewPolicy for a name outside the supported presets.
var ErrUnknownPreset = errors.New("unknown scoring preset")

// Policy holds the per-stat weights of a fantasy scoring ruleset.
type Policy struct {
	Preset Preset `json:"preset"`

	PassingYardsPerPoint float64 `json:"passing_yards_per_point"`
	PassingTD            float64 `json:"passing_td"`
	Interception         float64 `json:"interception"`
	Passing2Pt           float64 `json:"passing_2pt"`

	RushingYardsPerPoint float64 `json:"rushing_yards_per_point"`
	RushingTD            float64 `json:"rushing_td"`
	Rushing2Pt           float64 `json:"rushing_2pt"`

	ReceivingYardsPerPoint float64 `json:"receiving_yards_per_point"`
	ReceivingTD            float64 `json:"receiving_td"`
	Receiving2Pt           float64 `json:"receiving_2pt"`
	Reception              float64 `json:"reception"`

	FumbleLost float64 `json:"fumble_lost"`
}

// Presets lists the supported preset names in display order.
func Presets() []Preset {
	return []Preset{PresetStandard, PresetPPR, PresetHalfPPR}
}

// NewPolicy builds the policy for a preset name (case-insensitive).
func NewPolicy(name string) (*Policy, error) {
	preset := Preset(strings.ToLower(strings.TrimSpace(name)))

	policy := base()
	policy.Preset = preset

	switch preset {
	case PresetStandard:
		policy.Reception = 0
	case PresetPPR:
		policy.Reception = 1.0
	case PresetHalfPPR:
		policy.Reception = 0.5
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	return policy, nil
}

// MustPolicy is NewPolicy for compile-time constant presets.
func MustPolicy(name string) *Policy {
	policy, err := NewPolicy(name)
	if err != nil {
		panic(err)
	}
	return policy
}

func base() *Policy {
	return &Policy{
		PassingYardsPerPoint:   25,
		PassingTD:              4,
		Interception:           -2,
		Passing2Pt:             2,
		RushingYardsPerPoint:   10,
		RushingTD:              6,
		Rushing2Pt:             2,
		ReceivingYardsPerPoint: 10,
		ReceivingTD:            6,
		Receiving2Pt:           2,
		FumbleLost:             -2,
	}
}

// Calculate returns the fantasy points for one game's stat line, rounded to two places.
// Missing stats count as zero.
func (p *Policy) Calculate(stats map[string]float64) float64 {
	points := 0.0

	points += stats[StatPassingYards] / p.PassingYardsPerPoint
	points += stats[StatPassingTDs] * p.PassingTD
	points += stats[StatInterceptions] * p.Interception
	points += stats[StatPassing2Pt] * p.Passing2Pt

	points += stats[StatRushingYards] / p.RushingYardsPerPoint
	points += stats[StatRushingTDs] * p.RushingTD
	points += stats[StatRushing2Pt] * p.Rushing2Pt

	points += stats[StatReceivingYards] / p.ReceivingYardsPerPoint
	points += stats[StatReceivingTDs] * p.ReceivingTD
	points += stats[StatReceiving2Pt] * p.Receiving2Pt
	points += stats[StatReceptions] * p.Reception

	points += stats[StatFumblesLost] * p.FumbleLost

	return Round(points, 2)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(value float64, places int32) float64 {
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}
