package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/ceres/internal/store"
)

// ScheduleRepository handles season schedule data access
type ScheduleRepository struct {
	db *store.Database
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *store.Database) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// LoadSchedule returns the regular-season games for a season
func (r *ScheduleRepository) LoadSchedule(ctx context.Context, season int) ([]store.ScheduledGame, error) {
	query := `
		SELECT game_id, season, game_type, week, home_team, away_team
		FROM schedules
		WHERE season = $1 AND game_type = 'REG'
		ORDER BY week, game_id
	`

	rows, err := r.db.DB().QueryContext(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("querying schedule: %w", err)
	}
	defer rows.Close()

	var games []store.ScheduledGame
	for rows.Next() {
		var g store.ScheduledGame
		if err := rows.Scan(&g.GameID, &g.Season, &g.GameType, &g.Week, &g.HomeTeam, &g.AwayTeam); err != nil {
			return nil, fmt.Errorf("scanning scheduled game: %w", err)
		}
		games = append(games, g)
	}

	return games, rows.Err()
}

// UpsertSchedule inserts or updates scheduled games
func (r *ScheduleRepository) UpsertSchedule(ctx context.Context, games []store.ScheduledGame) (int, error) {
	query := `
		INSERT INTO schedules (game_id, season, game_type, week, home_team, away_team)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO UPDATE SET
			season = EXCLUDED.season,
			game_type = EXCLUDED.game_type,
			week = EXCLUDED.week,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team
	`

	count := 0
	for _, g := range games {
		if _, err := r.db.DB().ExecContext(ctx, query,
			g.GameID, g.Season, g.GameType, g.Week, g.HomeTeam, g.AwayTeam); err != nil {
			return count, fmt.Errorf("upserting game %s: %w", g.GameID, err)
		}
		count++
	}

	return count, nil
}
