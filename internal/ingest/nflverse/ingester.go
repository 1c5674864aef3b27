package nflverse

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fortuna/ceres/internal/store"
	"github.com/sirupsen/logrus"
)

// Dataset names one nflverse file family.
type Dataset string

const (
	DatasetStats     Dataset = "stats"
	DatasetRosters   Dataset = "rosters"
	DatasetSchedules Dataset = "schedules"
)

// AllDatasets in load order.
func AllDatasets() []Dataset {
	return []Dataset{DatasetStats, DatasetRosters, DatasetSchedules}
}

// ParseDatasets parses a comma-separated list. Empty means all.
func ParseDatasets(value string) ([]Dataset, error) {
	if strings.TrimSpace(value) == "" {
		return AllDatasets(), nil
	}
	var out []Dataset
	for _, part := range strings.Split(value, ",") {
		d := Dataset(strings.ToLower(strings.TrimSpace(part)))
		switch d {
		case DatasetStats, DatasetRosters, DatasetSchedules:
			out = append(out, d)
		case "":
		default:
			return nil, fmt.Errorf("unknown dataset %q", part)
		}
	}
	return out, nil
}

// Writers persist parsed rows. The store repositories satisfy them.
type (
	StatsWriter interface {
		UpsertGameRecords(ctx context.Context, records []store.GameRecord) (int, error)
	}
	RosterWriter interface {
		UpsertRoster(ctx context.Context, entries []store.RosterEntry) (int, error)
	}
	ScheduleWriter interface {
		UpsertSchedule(ctx context.Context, games []store.ScheduledGame) (int, error)
	}
	MappingWriter interface {
		Upsert(ctx context.Context, mappings []store.PlayerIDMapping) (int, error)
	}
)

// Writers groups the destinations for Ingest.
type Writers struct {
	Stats     StatsWriter
	Rosters   RosterWriter
	Schedules ScheduleWriter
	Mappings  MappingWriter
}

// Downloader fetches a file body.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
	PlayerStatsURL(season int) string
	RosterURL(season int) string
	GamesURL() string
}

// Ingester downloads, parses and stores nflverse data
type Ingester struct {
	client  Downloader
	writers Writers
	logger  logrus.FieldLogger
}

// NewIngester creates a new ingester
func NewIngester(client Downloader, writers Writers, logger logrus.FieldLogger) *Ingester {
	return &Ingester{
		client:  client,
		writers: writers,
		logger:  logger.WithField("component", "nflverse-ingester"),
	}
}

// Result reports what one dataset load did.
type Result struct {
	Dataset  Dataset `json:"dataset"`
	Season   int     `json:"season"`
	Parsed   int     `json:"parsed"`
	Written  int     `json:"written"`
	Mappings int     `json:"mappings,omitempty"`
}

// Ingest loads one dataset for one season. With dryRun nothing is written.
func (i *Ingester) Ingest(ctx context.Context, dataset Dataset, season int, dryRun bool) (Result, error) {
	res := Result{Dataset: dataset, Season: season}

	switch dataset {
	case DatasetStats:
		body, err := i.client.Download(ctx, i.client.PlayerStatsURL(season))
		if err != nil {
			return res, err
		}
		records, err := ParsePlayerStats(bytes.NewReader(body))
		if err != nil {
			return res, fmt.Errorf("parsing %d stats: %w", season, err)
		}
		res.Parsed = len(records)
		if dryRun || i.writers.Stats == nil {
			break
		}
		if res.Written, err = i.writers.Stats.UpsertGameRecords(ctx, records); err != nil {
			return res, err
		}

	case DatasetRosters:
		body, err := i.client.Download(ctx, i.client.RosterURL(season))
		if err != nil {
			return res, err
		}
		entries, err := ParseRosters(bytes.NewReader(body))
		if err != nil {
			return res, fmt.Errorf("parsing %d rosters: %w", season, err)
		}
		res.Parsed = len(entries)
		mappings := MappingsFromRosters(entries)
		if dryRun {
			res.Mappings = len(mappings)
			break
		}
		if i.writers.Rosters != nil {
			if res.Written, err = i.writers.Rosters.UpsertRoster(ctx, entries); err != nil {
				return res, err
			}
		}
		if i.writers.Mappings != nil {
			if res.Mappings, err = i.writers.Mappings.Upsert(ctx, mappings); err != nil {
				return res, err
			}
		}

	case DatasetSchedules:
		body, err := i.client.Download(ctx, i.client.GamesURL())
		if err != nil {
			return res, err
		}
		games, err := ParseSchedule(bytes.NewReader(body), season)
		if err != nil {
			return res, fmt.Errorf("parsing %d schedule: %w", season, err)
		}
		res.Parsed = len(games)
		if dryRun || i.writers.Schedules == nil {
			break
		}
		if res.Written, err = i.writers.Schedules.UpsertSchedule(ctx, games); err != nil {
			return res, err
		}

	default:
		return res, fmt.Errorf("unknown dataset %q", dataset)
	}

	i.logger.WithFields(logrus.Fields{
		"dataset": dataset,
		"season":  season,
		"dry_run": dryRun,
	}).Infof("✓ Parsed %d rows, wrote %d", res.Parsed, res.Written)
	return res, nil
}
