package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/ceres/internal/store"
)

// MappingRepository handles the GSIS <-> Sleeper id table
type MappingRepository struct {
	db *store.Database
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *store.Database) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetAll returns every stored id mapping
func (r *MappingRepository) GetAll(ctx context.Context) ([]store.PlayerIDMapping, error) {
	query := `
		SELECT gsis_id, sleeper_id, name, position, team, status, injury_status, updated_at
		FROM player_id_mappings
		ORDER BY name
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying id mappings: %w", err)
	}
	defer rows.Close()

	var mappings []store.PlayerIDMapping
	for rows.Next() {
		var m store.PlayerIDMapping
		if err := rows.Scan(&m.GSISID, &m.SleeperID, &m.Name, &m.Position, &m.Team,
			&m.Status, &m.InjuryStatus, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning id mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// Upsert inserts or updates id mappings. Rows missing either id are skipped.
func (r *MappingRepository) Upsert(ctx context.Context, mappings []store.PlayerIDMapping) (int, error) {
	query := `
		INSERT INTO player_id_mappings (gsis_id, sleeper_id, name, position, team, status, injury_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (gsis_id) DO UPDATE SET
			sleeper_id = EXCLUDED.sleeper_id,
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			team = EXCLUDED.team,
			status = EXCLUDED.status,
			injury_status = EXCLUDED.injury_status,
			updated_at = NOW()
	`

	count := 0
	for _, m := range mappings {
		if m.GSISID == "" || m.SleeperID == "" {
			continue
		}
		if _, err := r.db.DB().ExecContext(ctx, query,
			m.GSISID, m.SleeperID, m.Name, m.Position, m.Team, m.Status, m.InjuryStatus); err != nil {
			return count, fmt.Errorf("upserting mapping %s: %w", m.GSISID, err)
		}
		count++
	}

	return count, nil
}
