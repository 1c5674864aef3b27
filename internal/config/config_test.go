package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CERES_CONFIG", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Scoring != "ppr" || cfg.AvailabilityMaxRetries != 2 || cfg.SnapshotMaxAge != 24*time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.InjuryFilter || !cfg.QBBenchingFilter {
		t.Error("filters should default on")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ceres.yaml")
	yaml := `
server:
  port: "9000"
projections:
  scoring: half_ppr
  qb_benching_filter: false
  cache_ttl: 2m
availability:
  max_retries: 4
  backoff: 250ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REST_PORT", "9100")
	t.Setenv("AVAILABILITY_TIMEOUT", "5")
	t.Setenv("INJURY_FILTER", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.RESTPort != "9100" {
		t.Errorf("env should override file: port = %s", cfg.RESTPort)
	}
	if cfg.Scoring != "half_ppr" || cfg.QBBenchingFilter || cfg.ProjectionCacheTTL != 2*time.Minute {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.AvailabilityMaxRetries != 4 || cfg.AvailabilityBackoff != 250*time.Millisecond {
		t.Errorf("availability file values not applied: %+v", cfg)
	}
	if cfg.AvailabilityTimeout != 5*time.Second || cfg.InjuryFilter {
		t.Errorf("env values not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CERES_CONFIG", "")

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("SNAPSHOT_MAX_AGE", "a day")
		if _, err := Load(""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("negative retries", func(t *testing.T) {
		t.Setenv("AVAILABILITY_MAX_RETRIES", "-1")
		if _, err := Load(""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("projections: [unclosed"), 0o644)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error")
		}
	})
}
