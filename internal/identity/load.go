package identity

import (
	"context"

	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus"
)

// MappingSource lists stored mapping rows.
type MappingSource interface {
	GetAll(ctx context.Context) ([]store.PlayerIDMapping, error)
}

// Load prefers the stored mapping table and falls back to the CSV file when
// the table is empty or unreadable. source may be nil.
func Load(ctx context.Context, source MappingSource, path string, logger logrus.FieldLogger) (*Mapper, error) {
	if source != nil {
		rows, err := source.GetAll(ctx)
		switch {
		case err != nil:
			logger.Warnf("⚠️  Reading stored id mappings failed, trying %s: %v", path, err)
		case len(rows) > 0:
			m := NewMapper(rows)
			logger.WithField("mapped", m.Len()).Info("✓ Loaded player id mappings from database")
			return m, nil
		}
	}
	return LoadCSV(path, logger)
}
