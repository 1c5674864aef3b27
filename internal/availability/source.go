package availability

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Origin says where a Fetch result came from.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginSnapshot Origin = "snapshot"
	OriginNone     Origin = "none"
)

// Config holds the fetch and fallback settings.
type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	MaxAge     time.Duration
	CacheDir   string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:        SleeperPlayersURL,
		Timeout:    20 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
		MaxAge:     24 * time.Hour,
		CacheDir:   "data/cache",
	}
}

// Fetcher returns the raw remote payload.
type Fetcher interface {
	FetchRaw(ctx context.Context) (RawPlayers, error)
}

// Source runs the live -> snapshot -> empty fallback chain.
type Source struct {
	fetcher   Fetcher
	snapshots *SnapshotStore
	logger    logrus.FieldLogger
}

// NewSource wires a Sleeper client and snapshot store from cfg.
func NewSource(cfg Config, logger logrus.FieldLogger) *Source {
	client := NewClient(cfg.URL, cfg.Timeout, cfg.MaxRetries, cfg.Backoff, logger)
	return NewSourceWith(client, NewSnapshotStore(cfg.CacheDir, cfg.MaxAge), logger)
}

// NewSourceWith builds a source from explicit collaborators.
func NewSourceWith(fetcher Fetcher, snapshots *SnapshotStore, logger logrus.FieldLogger) *Source {
	return &Source{
		fetcher:   fetcher,
		snapshots: snapshots,
		logger:    logger.WithField("component", "availability"),
	}
}

// Fetch never fails. An empty result means availability is unknown and
// callers should let every player through.
func (s *Source) Fetch(ctx context.Context) (Records, Origin) {
	raw, err := s.fetcher.FetchRaw(ctx)
	if err == nil {
		records := Normalize(raw)

		if err := s.snapshots.SaveSnapshot(raw); err != nil {
			s.logger.Warnf("⚠️  Failed to save players snapshot: %v", err)
		}
		zeroed := ZeroedIDs(records)
		if err := s.snapshots.SaveZeroedIDs(zeroed); err != nil {
			s.logger.Warnf("⚠️  Failed to save IR cache: %v", err)
		}

		s.logger.Infof("✓ Using fresh Sleeper data (%d players, %d with IR-like status)", len(records), len(zeroed))
		return records, OriginLive
	}

	s.logger.Warnf("⚠️  Fresh fetch failed, trying snapshot: %v", err)

	raw, takenAt, err := s.snapshots.LoadSnapshot()
	if err != nil {
		s.logger.Errorf("No usable snapshot (%v), returning empty availability data", err)
		return Records{}, OriginNone
	}

	records := Normalize(raw)
	cached, err := s.snapshots.LoadZeroedIDs()
	if err != nil {
		s.logger.Debugf("IR cache unavailable: %v", err)
	}
	s.logger.WithField("snapshot_at", takenAt.Format(time.RFC3339)).
		Infof("Using snapshot data (%d players) with %d cached IR players", len(records), len(cached))

	return records, OriginSnapshot
}
