package store

import (
	"time"

	"github.com/fortuna/ceres/internal/scoring"
)

// GameRecord is one player's stat line for one (season, week).
type GameRecord struct {
	PlayerID       string    `json:"player_id" db:"player_id"`
	PlayerName     string    `json:"player_name" db:"player_name"`
	Position       string    `json:"position" db:"position"`
	Team           string    `json:"team" db:"team"`
	Season         int       `json:"season" db:"season"`
	Week           int       `json:"week" db:"week"`
	SeasonType     string    `json:"season_type" db:"season_type"`
	PassingYards   float64   `json:"passing_yards" db:"passing_yards"`
	PassingTDs     float64   `json:"passing_tds" db:"passing_tds"`
	Interceptions  float64   `json:"interceptions" db:"interceptions"`
	Passing2Pt     float64   `json:"passing_2pt" db:"passing_2pt"`
	RushingYards   float64   `json:"rushing_yards" db:"rushing_yards"`
	RushingTDs     float64   `json:"rushing_tds" db:"rushing_tds"`
	Rushing2Pt     float64   `json:"rushing_2pt" db:"rushing_2pt"`
	Receptions     float64   `json:"receptions" db:"receptions"`
	ReceivingYards float64   `json:"receiving_yards" db:"receiving_yards"`
	ReceivingTDs   float64   `json:"receiving_tds" db:"receiving_tds"`
	Receiving2Pt   float64   `json:"receiving_2pt" db:"receiving_2pt"`
	FumblesLost    float64   `json:"fumbles_lost" db:"fumbles_lost"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Stats returns the stat line keyed the way scoring.Policy expects.
func (g *GameRecord) Stats() map[string]float64 {
	return map[string]float64{
		scoring.StatPassingYards:   g.PassingYards,
		scoring.StatPassingTDs:     g.PassingTDs,
		scoring.StatInterceptions:  g.Interceptions,
		scoring.StatPassing2Pt:     g.Passing2Pt,
		scoring.StatRushingYards:   g.RushingYards,
		scoring.StatRushingTDs:     g.RushingTDs,
		scoring.StatRushing2Pt:     g.Rushing2Pt,
		scoring.StatReceivingYards: g.ReceivingYards,
		scoring.StatReceivingTDs:   g.ReceivingTDs,
		scoring.StatReceiving2Pt:   g.Receiving2Pt,
		scoring.StatReceptions:     g.Receptions,
		scoring.StatFumblesLost:    g.FumblesLost,
	}
}

// RosterEntry assigns a player to a team and position for a season.
type RosterEntry struct {
	Season    int       `json:"season" db:"season"`
	PlayerID  string    `json:"gsis_id" db:"gsis_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Position  string    `json:"position" db:"position"`
	Team      string    `json:"team" db:"team"`
	Status    string    `json:"status" db:"status"`
	SleeperID string    `json:"sleeper_id,omitempty" db:"sleeper_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduledGame is one row of a season schedule.
type ScheduledGame struct {
	GameID   string `json:"game_id" db:"game_id"`
	Season   int    `json:"season" db:"season"`
	GameType string `json:"game_type" db:"game_type"`
	Week     int    `json:"week" db:"week"`
	HomeTeam string `json:"home_team" db:"home_team"`
	AwayTeam string `json:"away_team" db:"away_team"`
}

// PlayerIDMapping links a stats-source (GSIS) id to an availability-source (Sleeper) id.
type PlayerIDMapping struct {
	GSISID       string    `json:"gsis_id" db:"gsis_id"`
	SleeperID    string    `json:"sleeper_id" db:"sleeper_id"`
	Name         string    `json:"name" db:"name"`
	Position     string    `json:"position" db:"position"`
	Team         string    `json:"team" db:"team"`
	Status       string    `json:"status" db:"status"`
	InjuryStatus string    `json:"injury_status" db:"injury_status"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
