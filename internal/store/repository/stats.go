package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/ceres/internal/store"
	"github.com/lib/pq"
)

// StatsRepository handles weekly player stat lines
type StatsRepository struct {
	db *store.Database
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *store.Database) *StatsRepository {
	return &StatsRepository{db: db}
}

// LoadPlayerStats returns regular-season stat lines for the given seasons.
// Seasons with no rows simply contribute nothing.
func (r *StatsRepository) LoadPlayerStats(ctx context.Context, seasons []int) ([]store.GameRecord, error) {
	query := `
		SELECT player_id, player_name, position, team, season, week, season_type,
			passing_yards, passing_tds, interceptions, passing_2pt,
			rushing_yards, rushing_tds, rushing_2pt,
			receptions, receiving_yards, receiving_tds, receiving_2pt,
			fumbles_lost, created_at, updated_at
		FROM player_game_stats
		WHERE season = ANY($1) AND season_type = 'REG'
		ORDER BY player_id, season, week
	`

	rows, err := r.db.DB().QueryContext(ctx, query, pq.Array(seasons))
	if err != nil {
		return nil, fmt.Errorf("querying player stats: %w", err)
	}
	defer rows.Close()

	var records []store.GameRecord
	for rows.Next() {
		var g store.GameRecord
		err := rows.Scan(
			&g.PlayerID, &g.PlayerName, &g.Position, &g.Team, &g.Season, &g.Week, &g.SeasonType,
			&g.PassingYards, &g.PassingTDs, &g.Interceptions, &g.Passing2Pt,
			&g.RushingYards, &g.RushingTDs, &g.Rushing2Pt,
			&g.Receptions, &g.ReceivingYards, &g.ReceivingTDs, &g.Receiving2Pt,
			&g.FumblesLost, &g.CreatedAt, &g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning player stats: %w", err)
		}
		records = append(records, g)
	}

	return records, rows.Err()
}

// UpsertGameRecords inserts or updates stat lines in a single transaction
func (r *StatsRepository) UpsertGameRecords(ctx context.Context, records []store.GameRecord) (int, error) {
	query := `
		INSERT INTO player_game_stats (player_id, player_name, position, team, season, week, season_type,
			passing_yards, passing_tds, interceptions, passing_2pt,
			rushing_yards, rushing_tds, rushing_2pt,
			receptions, receiving_yards, receiving_tds, receiving_2pt, fumbles_lost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (player_id, season, week, season_type) DO UPDATE SET
			player_name = EXCLUDED.player_name,
			position = EXCLUDED.position,
			team = EXCLUDED.team,
			passing_yards = EXCLUDED.passing_yards,
			passing_tds = EXCLUDED.passing_tds,
			interceptions = EXCLUDED.interceptions,
			passing_2pt = EXCLUDED.passing_2pt,
			rushing_yards = EXCLUDED.rushing_yards,
			rushing_tds = EXCLUDED.rushing_tds,
			rushing_2pt = EXCLUDED.rushing_2pt,
			receptions = EXCLUDED.receptions,
			receiving_yards = EXCLUDED.receiving_yards,
			receiving_tds = EXCLUDED.receiving_tds,
			receiving_2pt = EXCLUDED.receiving_2pt,
			fumbles_lost = EXCLUDED.fumbles_lost,
			updated_at = NOW()
	`

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stats upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare stats upsert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		g := &records[i]
		_, err := stmt.ExecContext(ctx,
			g.PlayerID, g.PlayerName, g.Position, g.Team, g.Season, g.Week, g.SeasonType,
			g.PassingYards, g.PassingTDs, g.Interceptions, g.Passing2Pt,
			g.RushingYards, g.RushingTDs, g.Rushing2Pt,
			g.Receptions, g.ReceivingYards, g.ReceivingTDs, g.Receiving2Pt, g.FumblesLost,
		)
		if err != nil {
			return i, fmt.Errorf("upserting stats for %s week %d: %w", g.PlayerID, g.Week, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stats upsert: %w", err)
	}

	return len(records), nil
}
