package bootstrap

import (
	"errors"
	"testing"
	"time"

	"github.com/fortuna/ceres/internal/config"
	"github.com/fortuna/ceres/internal/scoring"
)

func TestEngineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.QBBenchingFilter = false

	opts, err := EngineOptions(cfg, "")
	if err != nil {
		t.Fatalf("EngineOptions error: %v", err)
	}
	if opts.Policy.Preset != scoring.PresetPPR || !opts.InjuryFilter || opts.BenchingFilter {
		t.Errorf("unexpected options: %+v", opts)
	}

	opts, err = EngineOptions(cfg, "half_ppr")
	if err != nil || opts.Policy.Preset != scoring.PresetHalfPPR {
		t.Errorf("override not applied: %v, %v", opts.Policy, err)
	}

	if _, err := EngineOptions(cfg, "superflex"); !errors.Is(err, scoring.ErrUnknownPreset) {
		t.Errorf("err = %v, want ErrUnknownPreset", err)
	}
}

func TestAvailabilityConfig(t *testing.T) {
	cfg := config.Default()
	cfg.AvailabilityBackoff = time.Second
	cfg.CacheDir = "/tmp/ceres"

	got := AvailabilityConfig(cfg)
	if got.Backoff != time.Second || got.CacheDir != "/tmp/ceres" || got.MaxRetries != 2 || got.MaxAge != 24*time.Hour {
		t.Errorf("unexpected availability config: %+v", got)
	}
}
