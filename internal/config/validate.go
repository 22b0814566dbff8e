package config

import (
	"fmt"
	"strings"

	"perfguard/internal/regression"
)

// ValidationError describes one invalid config value.
type ValidationError struct {
	Key     string   // dot-notation key, e.g. "detector.sensitivity"
	Value   string   // the offending value as written
	Allowed []string // allowed values, when the key is an enum
	Message string   // constraint description
}

var severityNames = []string{
	string(regression.SeverityLow),
	string(regression.SeverityMedium),
	string(regression.SeverityHigh),
	string(regression.SeverityCritical),
}

// Validate checks every section and returns all violations, not just the
// first one.
func Validate(c Config) []ValidationError {
	var errs []ValidationError

	if c.Monitor.SampleIntervalMS < 1 {
		errs = append(errs, ValidationError{
			Key:     "monitor.sample_interval_ms",
			Value:   fmt.Sprintf("%d", c.Monitor.SampleIntervalMS),
			Message: "must be at least 1",
		})
	}

	if c.Detector.Sensitivity <= 0 {
		errs = append(errs, ValidationError{
			Key:     "detector.sensitivity",
			Value:   fmt.Sprintf("%g", c.Detector.Sensitivity),
			Message: "must be greater than 0",
		})
	}
	if c.Detector.MinSamples < 2 {
		errs = append(errs, ValidationError{
			Key:     "detector.min_samples",
			Value:   fmt.Sprintf("%d", c.Detector.MinSamples),
			Message: "must be at least 2",
		})
	}
	if c.Detector.TrendWindow < 1 {
		errs = append(errs, ValidationError{
			Key:     "detector.trend_window",
			Value:   fmt.Sprintf("%d", c.Detector.TrendWindow),
			Message: "must be at least 1",
		})
	}
	if c.Detector.VolatilityFactor <= 0 {
		errs = append(errs, ValidationError{
			Key:     "detector.volatility_factor",
			Value:   fmt.Sprintf("%g", c.Detector.VolatilityFactor),
			Message: "must be greater than 0",
		})
	}
	if c.Detector.MinRSquared <= 0 || c.Detector.MinRSquared > 1 {
		errs = append(errs, ValidationError{
			Key:     "detector.min_r_squared",
			Value:   fmt.Sprintf("%g", c.Detector.MinRSquared),
			Message: "must be greater than 0 and at most 1",
		})
	}
	if c.Detector.ChangeThresholdPct <= 0 {
		errs = append(errs, ValidationError{
			Key:     "detector.change_threshold_pct",
			Value:   fmt.Sprintf("%g", c.Detector.ChangeThresholdPct),
			Message: "must be greater than 0",
		})
	}

	for key, v := range map[string]float64{
		"baselines.duration_threshold": c.Baselines.DurationThreshold,
		"baselines.memory_threshold":   c.Baselines.MemoryThreshold,
		"baselines.cpu_threshold":      c.Baselines.CPUThreshold,
	} {
		if v < 1.0 {
			errs = append(errs, ValidationError{
				Key:     key,
				Value:   fmt.Sprintf("%g", v),
				Message: "must be at least 1.0",
			})
		}
	}

	if c.Gate.FailOn != "" && !isSeverity(c.Gate.FailOn) {
		errs = append(errs, ValidationError{
			Key:     "gate.fail_on",
			Value:   c.Gate.FailOn,
			Allowed: severityNames,
		})
	}
	for metric, severity := range c.Gate.PerMetric {
		if !isSeverity(severity) {
			errs = append(errs, ValidationError{
				Key:     "gate.per_metric." + metric,
				Value:   severity,
				Allowed: severityNames,
			})
		}
	}

	return errs
}

func isSeverity(s string) bool {
	for _, name := range severityNames {
		if s == name {
			return true
		}
	}
	return false
}

// FormatError formats a ValidationError into a human-readable message.
func FormatError(err ValidationError) string {
	if len(err.Allowed) > 0 {
		return fmt.Sprintf("%s: '%s' is not valid, must be one of: %s",
			err.Key, err.Value, strings.Join(err.Allowed, ", "))
	}
	return fmt.Sprintf("%s: '%s' %s", err.Key, err.Value, err.Message)
}

// FormatErrors joins all validation errors into one message.
func FormatErrors(errs []ValidationError) string {
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = FormatError(err)
	}
	return strings.Join(messages, "; ")
}
