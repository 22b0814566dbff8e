// Package baseline manages persisted statistical baselines for performance
// regression detection. One baseline summarizes the historical samples of a
// named test; creating a baseline with an existing name replaces it.
package baseline

import "time"

// Baseline is the persisted statistical summary for one test name.
// The JSON field names are a stable on-disk contract.
type Baseline struct {
	TestName     string    `json:"test_name"`
	BaselineDate time.Time `json:"baseline_date"`
	SampleCount  int       `json:"sample_count"`

	// Duration statistics in seconds.
	DurationMean float64 `json:"duration_mean"`
	DurationStd  float64 `json:"duration_std"`
	DurationMin  float64 `json:"duration_min"`
	DurationMax  float64 `json:"duration_max"`

	// Memory statistics in bytes. Means are truncated to whole bytes.
	MemoryPeakMean  int64   `json:"memory_peak_mean"`
	MemoryPeakStd   float64 `json:"memory_peak_std"`
	MemoryDeltaMean int64   `json:"memory_delta_mean"`
	MemoryDeltaStd  float64 `json:"memory_delta_std"`

	// CPU statistics in percent.
	CPUPercentMean float64 `json:"cpu_percent_mean"`
	CPUPercentStd  float64 `json:"cpu_percent_std"`

	// Multiplicative regression thresholds: a current value above
	// mean*factor counts as a regression.
	DurationThresholdFactor float64 `json:"duration_threshold_factor"`
	MemoryThresholdFactor   float64 `json:"memory_threshold_factor"`
	CPUThresholdFactor      float64 `json:"cpu_threshold_factor"`
}

// Thresholds bundles the per-metric regression threshold factors used when
// creating a baseline. Zero fields fall back to the defaults.
type Thresholds struct {
	Duration float64
	Memory   float64
	CPU      float64
}

// DefaultThresholds returns the standard threshold factors:
// +50% duration, +30% memory, +40% CPU.
func DefaultThresholds() Thresholds {
	return Thresholds{Duration: 1.5, Memory: 1.3, CPU: 1.4}
}

// normalized fills zero fields with the defaults.
func (t Thresholds) normalized() Thresholds {
	d := DefaultThresholds()
	if t.Duration == 0 {
		t.Duration = d.Duration
	}
	if t.Memory == 0 {
		t.Memory = d.Memory
	}
	if t.CPU == 0 {
		t.CPU = d.CPU
	}
	return t
}

// RegressionResult is the outcome of comparing one metric of a current
// sample against its baseline.
type RegressionResult struct {
	TestName          string  `json:"test_name"`
	HasRegression     bool    `json:"has_regression"`
	RegressionType    string  `json:"regression_type"` // duration, memory, cpu, or none
	CurrentValue      float64 `json:"current_value"`
	BaselineValue     float64 `json:"baseline_value"`
	PercentageChange  float64 `json:"percentage_change"`
	ThresholdExceeded bool    `json:"threshold_exceeded"`
	MetricName        string  `json:"metric_name"`
	ThresholdFactor   float64 `json:"threshold_factor"`
	Message           string  `json:"message"`
}

// Summary is a lightweight view of one stored baseline for listings.
type Summary struct {
	TestName         string    `json:"test_name"`
	BaselineDate     time.Time `json:"baseline_date"`
	SampleCount      int       `json:"sample_count"`
	DurationMean     float64   `json:"duration_mean"`
	MemoryPeakMeanMB float64   `json:"memory_peak_mean_mb"`
	CPUPercentMean   float64   `json:"cpu_percent_mean"`
}
