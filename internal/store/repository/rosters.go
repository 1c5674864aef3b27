package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/ceres/internal/store"
)

// RosterRepository handles season roster data access
type RosterRepository struct {
	db *store.Database
}

// NewRosterRepository creates a new roster repository
func NewRosterRepository(db *store.Database) *RosterRepository {
	return &RosterRepository{db: db}
}

// LoadRosters returns every roster entry for a season
func (r *RosterRepository) LoadRosters(ctx context.Context, season int) ([]store.RosterEntry, error) {
	query := `
		SELECT season, gsis_id, full_name, position, team, status, sleeper_id, created_at, updated_at
		FROM rosters
		WHERE season = $1
		ORDER BY full_name
	`

	rows, err := r.db.DB().QueryContext(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("querying rosters: %w", err)
	}
	defer rows.Close()

	var entries []store.RosterEntry
	for rows.Next() {
		var e store.RosterEntry
		if err := rows.Scan(&e.Season, &e.PlayerID, &e.FullName, &e.Position, &e.Team,
			&e.Status, &e.SleeperID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning roster entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpsertRoster inserts or updates roster entries
func (r *RosterRepository) UpsertRoster(ctx context.Context, entries []store.RosterEntry) (int, error) {
	query := `
		INSERT INTO rosters (season, gsis_id, full_name, position, team, status, sleeper_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (season, gsis_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			position = EXCLUDED.position,
			team = EXCLUDED.team,
			status = EXCLUDED.status,
			sleeper_id = EXCLUDED.sleeper_id,
			updated_at = NOW()
	`

	count := 0
	for _, e := range entries {
		if _, err := r.db.DB().ExecContext(ctx, query,
			e.Season, e.PlayerID, e.FullName, e.Position, e.Team, e.Status, e.SleeperID); err != nil {
			return count, fmt.Errorf("upserting roster entry %s: %w", e.PlayerID, err)
		}
		count++
	}

	return count, nil
}
