// Package identity translates player ids between the stats source (GSIS)
// and the availability source (Sleeper).
package identity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus"
)

// Mapper is a read-only bidirectional id table.
type Mapper struct {
	forward  map[string]string // gsis -> sleeper
	backward map[string]string // sleeper -> gsis
	rows     map[string]store.PlayerIDMapping
}

// NewMapper builds a mapper from mapping rows. Rows missing either id, or
// repeating an id already seen on either side, are skipped.
func NewMapper(rows []store.PlayerIDMapping) *Mapper {
	m := &Mapper{
		forward:  make(map[string]string, len(rows)),
		backward: make(map[string]string, len(rows)),
		rows:     make(map[string]store.PlayerIDMapping, len(rows)),
	}

	for _, row := range rows {
		gsis := strings.TrimSpace(row.GSISID)
		sleeper := strings.TrimSpace(row.SleeperID)
		if gsis == "" || sleeper == "" {
			continue
		}
		if _, dup := m.forward[gsis]; dup {
			continue
		}
		if _, dup := m.backward[sleeper]; dup {
			continue
		}
		row.GSISID, row.SleeperID = gsis, sleeper
		m.forward[gsis] = sleeper
		m.backward[sleeper] = gsis
		m.rows[gsis] = row
	}

	return m
}

// LoadCSV reads a mapping table with at least gsis_id and sleeper_id columns.
// A missing file yields an empty mapper so every player is treated as unmapped.
func LoadCSV(path string, logger logrus.FieldLogger) (*Mapper, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.WithField("path", path).Warn("⚠️  id mapping file not found, availability filters will pass everyone")
		return NewMapper(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	rows, skipped, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file %s: %w", path, err)
	}

	m := NewMapper(rows)
	logger.WithFields(logrus.Fields{
		"path":      path,
		"mapped":    m.Len(),
		"malformed": skipped,
	}).Info("✓ Loaded player id mappings")

	return m, nil
}

// ReadCSV parses mapping rows from r. It returns the rows it could read and
// the number of records it had to skip for a short column count.
func ReadCSV(r io.Reader) ([]store.PlayerIDMapping, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["gsis_id"]; !ok {
		return nil, 0, fmt.Errorf("missing gsis_id column")
	}
	if _, ok := cols["sleeper_id"]; !ok {
		return nil, 0, fmt.Errorf("missing sleeper_id column")
	}

	get := func(record []string, name string) (string, bool) {
		i, ok := cols[name]
		if !ok {
			return "", true
		}
		if i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	var rows []store.PlayerIDMapping
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		gsis, ok1 := get(record, "gsis_id")
		sleeper, ok2 := get(record, "sleeper_id")
		if !ok1 || !ok2 {
			skipped++
			continue
		}
		name, _ := get(record, "name")
		position, _ := get(record, "position")
		team, _ := get(record, "team")
		status, _ := get(record, "status")
		injury, _ := get(record, "injury_status")

		rows = append(rows, store.PlayerIDMapping{
			GSISID:       gsis,
			SleeperID:    sleeper,
			Name:         name,
			Position:     position,
			Team:         team,
			Status:       status,
			InjuryStatus: injury,
		})
	}

	return rows, skipped, nil
}

// WriteCSV writes mapping rows in the layout ReadCSV expects.
func WriteCSV(w io.Writer, rows []store.PlayerIDMapping) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"gsis_id", "sleeper_id", "name", "position", "team", "status", "injury_status"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{r.GSISID, r.SleeperID, r.Name, r.Position, r.Team, r.Status, r.InjuryStatus}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ToAvailabilityID maps a GSIS id to its Sleeper id.
func (m *Mapper) ToAvailabilityID(statsID string) (string, bool) {
	id, ok := m.forward[statsID]
	return id, ok
}

// ToStatsID maps a Sleeper id back to its GSIS id.
func (m *Mapper) ToStatsID(availabilityID string) (string, bool) {
	id, ok := m.backward[availabilityID]
	return id, ok
}

// HasMapping reports whether a GSIS id has a Sleeper counterpart.
func (m *Mapper) HasMapping(statsID string) bool {
	_, ok := m.forward[statsID]
	return ok
}

// Row returns the full mapping row for a GSIS id.
func (m *Mapper) Row(statsID string) (store.PlayerIDMapping, bool) {
	row, ok := m.rows[statsID]
	return row, ok
}

// Len returns the number of usable mappings.
func (m *Mapper) Len() int {
	return len(m.forward)
}
