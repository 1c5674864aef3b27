// Package config resolves runtime settings in priority order:
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
type Config struct {
	DatabaseDSN string
	RedisURL    string
	RESTPort    string

	LogLevel string
	LogFile  string

	Scoring     string
	CacheDir    string
	MappingFile string

	SleeperURL             string
	AvailabilityTimeout    time.Duration
	AvailabilityMaxRetries int
	AvailabilityBackoff    time.Duration
	SnapshotMaxAge         time.Duration

	InjuryFilter     bool
	QBBenchingFilter bool

	ProjectionCacheTTL time.Duration

	NFLVerseBaseURL  string
	NFLVerseGamesURL string

	RefreshSchedule string
	PublishSchedule string
}

// configFile mirrors the YAML schema. Durations are Go duration strings.
type configFile struct {
	Dependencies struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Projections struct {
		Scoring          string `yaml:"scoring"`
		InjuryFilter     *bool  `yaml:"injury_filter"`
		QBBenchingFilter *bool  `yaml:"qb_benching_filter"`
		CacheTTL         string `yaml:"cache_ttl"`
		MappingFile      string `yaml:"mapping_file"`
	} `yaml:"projections"`
	Availability struct {
		URL        string `yaml:"url"`
		Timeout    string `yaml:"timeout"`
		MaxRetries *int   `yaml:"max_retries"`
		Backoff    string `yaml:"backoff"`
		MaxAge     string `yaml:"snapshot_max_age"`
		CacheDir   string `yaml:"cache_dir"`
	} `yaml:"availability"`
	NFLVerse struct {
		BaseURL  string `yaml:"base_url"`
		GamesURL string `yaml:"games_url"`
	} `yaml:"nflverse"`
	Scheduler struct {
		Refresh string `yaml:"refresh"`
		Publish string `yaml:"publish"`
	} `yaml:"scheduler"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabaseDSN:            "postgres://localhost:5432/ceres?sslmode=disable",
		RedisURL:               "redis://localhost:6379",
		RESTPort:               "8080",
		LogLevel:               "info",
		Scoring:                "ppr",
		CacheDir:               "data/cache",
		MappingFile:            "data/player_id_mapping.csv",
		SleeperURL:             "https://api.sleeper.app/v1/players/nfl",
		AvailabilityTimeout:    20 * time.Second,
		AvailabilityMaxRetries: 2,
		AvailabilityBackoff:    500 * time.Millisecond,
		SnapshotMaxAge:         24 * time.Hour,
		InjuryFilter:           true,
		QBBenchingFilter:       true,
		ProjectionCacheTTL:     10 * time.Minute,
		RefreshSchedule:        "0 */6 * * *",
		PublishSchedule:        "15 */6 * * *",
	}
}

// Load resolves configuration. path may be empty, in which case CERES_CONFIG
// is consulted; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CERES_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}

	setString(&cfg.DatabaseDSN, f.Dependencies.PostgresDSN)
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)
	setString(&cfg.RESTPort, f.Server.Port)
	setString(&cfg.LogLevel, f.Logging.Level)
	setString(&cfg.LogFile, f.Logging.File)
	setString(&cfg.Scoring, f.Projections.Scoring)
	setString(&cfg.MappingFile, f.Projections.MappingFile)
	setString(&cfg.SleeperURL, f.Availability.URL)
	setString(&cfg.CacheDir, f.Availability.CacheDir)
	setString(&cfg.NFLVerseBaseURL, f.NFLVerse.BaseURL)
	setString(&cfg.NFLVerseGamesURL, f.NFLVerse.GamesURL)
	setString(&cfg.RefreshSchedule, f.Scheduler.Refresh)
	setString(&cfg.PublishSchedule, f.Scheduler.Publish)

	if f.Projections.InjuryFilter != nil {
		cfg.InjuryFilter = *f.Projections.InjuryFilter
	}
	if f.Projections.QBBenchingFilter != nil {
		cfg.QBBenchingFilter = *f.Projections.QBBenchingFilter
	}
	if f.Availability.MaxRetries != nil {
		cfg.AvailabilityMaxRetries = *f.Availability.MaxRetries
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"projections.cache_ttl", f.Projections.CacheTTL, &cfg.ProjectionCacheTTL},
		{"availability.timeout", f.Availability.Timeout, &cfg.AvailabilityTimeout},
		{"availability.backoff", f.Availability.Backoff, &cfg.AvailabilityBackoff},
		{"availability.snapshot_max_age", f.Availability.MaxAge, &cfg.SnapshotMaxAge},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.field = v
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.DatabaseDSN = envOrDefault("ATLAS_DSN", cfg.DatabaseDSN)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.RESTPort = envOrDefault("REST_PORT", cfg.RESTPort)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envOrDefault("LOG_FILE", cfg.LogFile)
	cfg.Scoring = envOrDefault("SCORING", cfg.Scoring)
	cfg.CacheDir = envOrDefault("CACHE_DIR", cfg.CacheDir)
	cfg.MappingFile = envOrDefault("MAPPING_FILE", cfg.MappingFile)
	cfg.SleeperURL = envOrDefault("SLEEPER_URL", cfg.SleeperURL)
	cfg.NFLVerseBaseURL = envOrDefault("NFLVERSE_BASE_URL", cfg.NFLVerseBaseURL)
	cfg.NFLVerseGamesURL = envOrDefault("NFLVERSE_GAMES_URL", cfg.NFLVerseGamesURL)
	cfg.RefreshSchedule = envOrDefault("REFRESH_SCHEDULE", cfg.RefreshSchedule)
	cfg.PublishSchedule = envOrDefault("PUBLISH_SCHEDULE", cfg.PublishSchedule)

	cfg.InjuryFilter = envBool("INJURY_FILTER", cfg.InjuryFilter)
	cfg.QBBenchingFilter = envBool("QB_BENCHING_FILTER", cfg.QBBenchingFilter)

	var err error
	if cfg.AvailabilityMaxRetries, err = envInt("AVAILABILITY_MAX_RETRIES", cfg.AvailabilityMaxRetries); err != nil {
		return err
	}
	if cfg.AvailabilityTimeout, err = envDuration("AVAILABILITY_TIMEOUT", cfg.AvailabilityTimeout); err != nil {
		return err
	}
	if cfg.AvailabilityBackoff, err = envDuration("AVAILABILITY_BACKOFF", cfg.AvailabilityBackoff); err != nil {
		return err
	}
	if cfg.SnapshotMaxAge, err = envDuration("SNAPSHOT_MAX_AGE", cfg.SnapshotMaxAge); err != nil {
		return err
	}
	if cfg.ProjectionCacheTTL, err = envDuration("PROJECTION_CACHE_TTL", cfg.ProjectionCacheTTL); err != nil {
		return err
	}
	return nil
}

func (c Config) validate() error {
	if c.AvailabilityMaxRetries < 0 {
		return fmt.Errorf("availability max retries must be >= 0, got %d", c.AvailabilityMaxRetries)
	}
	if c.AvailabilityTimeout <= 0 {
		return fmt.Errorf("availability timeout must be positive")
	}
	if c.SnapshotMaxAge <= 0 {
		return fmt.Errorf("snapshot max age must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return v, nil
}

// envDuration accepts Go durations ("500ms") or bare seconds ("20").
func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", name, raw)
	}
	return v, nil
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
