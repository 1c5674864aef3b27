package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	snapshotFile  = "players_snapshot.json"
	zeroedIDsFile = "ir_players.json"
)

var (
	// ErrNoSnapshot means no snapshot has been written yet.
	ErrNoSnapshot = errors.New("no availability snapshot")
	// ErrStaleSnapshot means the snapshot is older than the freshness window.
	ErrStaleSnapshot = errors.New("availability snapshot is stale")
)

// zeroedStatuses are the roster statuses recorded in the diagnostics cache.
var zeroedStatuses = map[string]bool{
	"IR":        true,
	"PUP":       true,
	"NFI":       true,
	"SUSPENDED": true,
}

type snapshot struct {
	Timestamp time.Time  `json:"timestamp"`
	Data      RawPlayers `json:"data"`
}

type zeroedCache struct {
	Timestamp time.Time `json:"timestamp"`
	IRPlayers []string  `json:"ir_players"`
}

// SnapshotStore persists the raw payload and the zeroed-status id set under a directory.
type SnapshotStore struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

// NewSnapshotStore creates a store rooted at dir.
func NewSnapshotStore(dir string, maxAge time.Duration) *SnapshotStore {
	return &SnapshotStore{dir: dir, maxAge: maxAge, now: time.Now}
}

// SaveSnapshot writes the raw payload with the current timestamp.
func (s *SnapshotStore) SaveSnapshot(raw RawPlayers) error {
	return s.writeJSON(snapshotFile, snapshot{Timestamp: s.now().UTC(), Data: raw})
}

// LoadSnapshot returns the stored raw payload if it is within the freshness window.
func (s *SnapshotStore) LoadSnapshot() (RawPlayers, time.Time, error) {
	var snap snapshot
	if err := s.readJSON(snapshotFile, &snap); err != nil {
		return nil, time.Time{}, err
	}
	if s.maxAge > 0 && s.now().Sub(snap.Timestamp) > s.maxAge {
		return nil, snap.Timestamp, fmt.Errorf("%w: taken %s", ErrStaleSnapshot, snap.Timestamp.Format(time.RFC3339))
	}
	return snap.Data, snap.Timestamp, nil
}

// SaveZeroedIDs writes the sorted id set.
func (s *SnapshotStore) SaveZeroedIDs(ids []string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return s.writeJSON(zeroedIDsFile, zeroedCache{Timestamp: s.now().UTC(), IRPlayers: sorted})
}

// LoadZeroedIDs reads the id set written by SaveZeroedIDs.
func (s *SnapshotStore) LoadZeroedIDs() ([]string, error) {
	var cache zeroedCache
	if err := s.readJSON(zeroedIDsFile, &cache); err != nil {
		return nil, err
	}
	return cache.IRPlayers, nil
}

func (s *SnapshotStore) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return os.Rename(tmp, path)
}

func (s *SnapshotStore) readJSON(name string, v interface{}) error {
	body, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoSnapshot
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// ZeroedIDs returns the ids whose roster status marks a long-term absence.
func ZeroedIDs(records Records) []string {
	var ids []string
	for id, r := range records {
		if zeroedStatuses[NormalizeStatus(r.Status)] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
