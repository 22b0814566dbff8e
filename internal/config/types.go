// Package config loads and validates the perfguard.yaml project file.
// A missing file is not an error: every section has working defaults, and
// environment variables can override individual keys.
package config

import (
	"time"

	"perfguard/internal/baseline"
	"perfguard/internal/gate"
	"perfguard/internal/metrics"
	"perfguard/internal/regression"
)

// Config is the full project configuration.
type Config struct {
	Monitor   MonitorSection  `yaml:"monitor"`
	Detector  DetectorSection `yaml:"detector"`
	Baselines BaselineSection `yaml:"baselines"`
	Gate      GateSection     `yaml:"gate"`
}

// MonitorSection configures resource sampling.
type MonitorSection struct {
	SampleIntervalMS int  `yaml:"sample_interval_ms"`
	TrackMemory      bool `yaml:"track_memory"`
	TrackCPU         bool `yaml:"track_cpu"`
	TrackIO          bool `yaml:"track_io"`
}

// DetectorSection configures trend analysis and advanced detection.
type DetectorSection struct {
	Sensitivity        float64 `yaml:"sensitivity"`
	MinSamples         int     `yaml:"min_samples"`
	TrendWindow        int     `yaml:"trend_window"`
	VolatilityFactor   float64 `yaml:"volatility_factor"`
	MinRSquared        float64 `yaml:"min_r_squared"`
	ChangeThresholdPct float64 `yaml:"change_threshold_pct"`
}

// BaselineSection configures the baseline store and threshold factors.
type BaselineSection struct {
	Dir               string  `yaml:"dir"`
	DurationThreshold float64 `yaml:"duration_threshold"`
	MemoryThreshold   float64 `yaml:"memory_threshold"`
	CPUThreshold      float64 `yaml:"cpu_threshold"`
}

// GateSection configures the CI gate.
type GateSection struct {
	FailOn    string            `yaml:"fail_on"`
	PerMetric map[string]string `yaml:"per_metric,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Monitor: MonitorSection{
			SampleIntervalMS: 100,
			TrackMemory:      true,
			TrackCPU:         true,
			TrackIO:          true,
		},
		Detector: DetectorSection{
			Sensitivity:        1.0,
			MinSamples:         3,
			TrendWindow:        10,
			VolatilityFactor:   10,
			MinRSquared:        0.3,
			ChangeThresholdPct: 5,
		},
		Baselines: BaselineSection{
			Dir:               baseline.DefaultDir(),
			DurationThreshold: 1.5,
			MemoryThreshold:   1.3,
			CPUThreshold:      1.4,
		},
		Gate: GateSection{
			FailOn: string(regression.SeverityMedium),
		},
	}
}

// MonitorConfig converts the section into the monitor's native config.
func (c Config) MonitorConfig() metrics.MonitorConfig {
	return metrics.MonitorConfig{
		SampleInterval: time.Duration(c.Monitor.SampleIntervalMS) * time.Millisecond,
		TrackMemory:    c.Monitor.TrackMemory,
		TrackCPU:       c.Monitor.TrackCPU,
		TrackIO:        c.Monitor.TrackIO,
	}
}

// DetectorConfig converts the section into the detector's native config.
func (c Config) DetectorConfig() regression.Config {
	return regression.Config{
		Sensitivity:        c.Detector.Sensitivity,
		MinSamples:         c.Detector.MinSamples,
		TrendWindow:        c.Detector.TrendWindow,
		VolatilityFactor:   c.Detector.VolatilityFactor,
		MinRSquared:        c.Detector.MinRSquared,
		ChangeThresholdPct: c.Detector.ChangeThresholdPct,
	}
}

// Thresholds converts the section into baseline threshold factors.
func (c Config) Thresholds() baseline.Thresholds {
	return baseline.Thresholds{
		Duration: c.Baselines.DurationThreshold,
		Memory:   c.Baselines.MemoryThreshold,
		CPU:      c.Baselines.CPUThreshold,
	}
}

// GatePolicy converts the section into a gate policy.
func (c Config) GatePolicy() gate.Policy {
	p := gate.Policy{FailOn: regression.Severity(c.Gate.FailOn)}
	if len(c.Gate.PerMetric) > 0 {
		p.PerMetric = make(map[string]regression.Severity, len(c.Gate.PerMetric))
		for metric, severity := range c.Gate.PerMetric {
			p.PerMetric[metric] = regression.Severity(severity)
		}
	}
	return p
}
