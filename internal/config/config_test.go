package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_DefaultsWhenNothingSet(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg.RuntimeEnvDir != want.RuntimeEnvDir || cfg.CachePath != want.CachePath {
		t.Errorf("Load() without overrides = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_OverridesScalarsFromViper(t *testing.T) {
	v := viper.New()
	v.Set("cache_ttl_hours", "48") // string, as an env var would arrive
	v.Set("regression_threshold", 1.1)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheTTLHours != 48 {
		t.Errorf("CacheTTLHours = %d, want 48", cfg.CacheTTLHours)
	}
	if cfg.RegressionThreshold != 1.1 {
		t.Errorf("RegressionThreshold = %f, want 1.1", cfg.RegressionThreshold)
	}
}

func TestLoad_DecodesSuiteOverrides(t *testing.T) {
	v := viper.New()
	v.Set("suites", map[string]any{
		"hash": map[string]any{"regression_threshold": 1.2},
	})

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	o, ok := cfg.SuiteOverrides["hash"]
	if !ok {
		t.Fatal("expected a SuiteOverride for \"hash\"")
	}
	if o.RegressionThreshold != 1.2 {
		t.Errorf("RegressionThreshold override = %f, want 1.2", o.RegressionThreshold)
	}
}

func TestForSuite_FallsBackToProjectDefaultsWhenNoOverride(t *testing.T) {
	cfg := Default()
	threshold, confidence := cfg.ForSuite("unknown")
	if threshold != cfg.RegressionThreshold || confidence != cfg.ConfidenceLevel {
		t.Errorf("ForSuite() = (%f, %f), want project defaults", threshold, confidence)
	}
}

func TestForSuite_AppliesPartialOverride(t *testing.T) {
	cfg := Default()
	cfg.SuiteOverrides = map[string]SuiteOverride{
		"hash": {RegressionThreshold: 1.2},
	}
	threshold, confidence := cfg.ForSuite("hash")
	if threshold != 1.2 {
		t.Errorf("threshold = %f, want override 1.2", threshold)
	}
	if confidence != cfg.ConfidenceLevel {
		t.Errorf("confidence = %f, want project default %f", confidence, cfg.ConfidenceLevel)
	}
}
