package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"perfguard/internal/regression"
)

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty content must yield defaults, got %+v", cfg)
	}
}

func TestParsePartialOverride(t *testing.T) {
	content := []byte(`
detector:
  sensitivity: 2.0
  volatility_factor: 4
  min_r_squared: 0.5
  change_threshold_pct: 2.5
gate:
  fail_on: high
`)
	cfg, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Detector.Sensitivity != 2.0 {
		t.Errorf("sensitivity = %v, want 2.0", cfg.Detector.Sensitivity)
	}
	if cfg.Detector.MinSamples != 3 {
		t.Errorf("min_samples = %d, want default 3", cfg.Detector.MinSamples)
	}
	if cfg.Detector.VolatilityFactor != 4 || cfg.Detector.MinRSquared != 0.5 || cfg.Detector.ChangeThresholdPct != 2.5 {
		t.Errorf("trend tuning not applied: %+v", cfg.Detector)
	}
	if cfg.Gate.FailOn != "high" {
		t.Errorf("fail_on = %q, want high", cfg.Gate.FailOn)
	}
	if cfg.Baselines.DurationThreshold != 1.5 {
		t.Errorf("duration_threshold = %v, want default 1.5", cfg.Baselines.DurationThreshold)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("detector: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative sensitivity", "detector:\n  sensitivity: -1\n"},
		{"sub-1 threshold", "baselines:\n  duration_threshold: 0.5\n"},
		{"bogus severity", "gate:\n  fail_on: fatal\n"},
		{"per-metric bogus severity", "gate:\n  per_metric:\n    memory_peak: extreme\n"},
		{"zero interval", "monitor:\n  sample_interval_ms: 0\n"},
		{"negative volatility factor", "detector:\n  volatility_factor: -2\n"},
		{"r-squared above 1", "detector:\n  min_r_squared: 1.5\n"},
		{"zero change threshold", "detector:\n  change_threshold_pct: 0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.content)); err == nil {
				t.Errorf("expected validation error for %q", tc.content)
			}
		})
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("missing file must yield defaults, got %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("monitor:\n  sample_interval_ms: 250\n")
	if err := os.WriteFile(filepath.Join(dir, FileName), content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.SampleIntervalMS != 250 {
		t.Errorf("sample_interval_ms = %d, want 250", cfg.Monitor.SampleIntervalMS)
	}
}

func TestConfigConversions(t *testing.T) {
	cfg := Default()

	mc := cfg.MonitorConfig()
	if mc.SampleInterval != 100*time.Millisecond {
		t.Errorf("sample interval = %v, want 100ms", mc.SampleInterval)
	}
	if !mc.TrackMemory || !mc.TrackCPU || !mc.TrackIO {
		t.Errorf("all tracking flags default on, got %+v", mc)
	}

	dc := cfg.DetectorConfig()
	if dc.Sensitivity != 1.0 || dc.MinSamples != 3 || dc.TrendWindow != 10 {
		t.Errorf("unexpected detector config: %+v", dc)
	}
	if dc.VolatilityFactor != 10 || dc.MinRSquared != 0.3 || dc.ChangeThresholdPct != 5 {
		t.Errorf("unexpected trend tuning: %+v", dc)
	}

	th := cfg.Thresholds()
	if th.Duration != 1.5 || th.Memory != 1.3 || th.CPU != 1.4 {
		t.Errorf("unexpected thresholds: %+v", th)
	}

	p := cfg.GatePolicy()
	if p.FailOn != regression.SeverityMedium {
		t.Errorf("gate fail_on = %s, want medium", p.FailOn)
	}
}

func TestToYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Gate.PerMetric = map[string]string{"duration_seconds": "low"}

	data, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Gate.PerMetric["duration_seconds"] != "low" {
		t.Errorf("per_metric lost in round trip: %+v", parsed.Gate)
	}
}
