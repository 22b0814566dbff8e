package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix namespaces every configuration override.
const EnvPrefix = "PERFGUARD_"

// KeyToEnvVar converts a dot-notation config key to its override variable.
// e.g. "detector.sensitivity" -> "PERFGUARD_DETECTOR_SENSITIVITY"
func KeyToEnvVar(key string) string {
	if key == "" {
		return ""
	}
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ApplyEnv overlays PERFGUARD_* variables from environ onto the config.
// Unknown variables are ignored; malformed values for known keys error.
// The merged config is re-validated.
func ApplyEnv(c Config, environ []string) (Config, error) {
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}

		if err := applyOne(&c, name, value); err != nil {
			return Config{}, err
		}
	}

	if errs := Validate(c); len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", FormatErrors(errs))
	}

	return c, nil
}

func applyOne(c *Config, name, value string) error {
	switch name {
	case KeyToEnvVar("monitor.sample_interval_ms"):
		return setInt(&c.Monitor.SampleIntervalMS, name, value)
	case KeyToEnvVar("monitor.track_memory"):
		return setBool(&c.Monitor.TrackMemory, name, value)
	case KeyToEnvVar("monitor.track_cpu"):
		return setBool(&c.Monitor.TrackCPU, name, value)
	case KeyToEnvVar("monitor.track_io"):
		return setBool(&c.Monitor.TrackIO, name, value)
	case KeyToEnvVar("detector.sensitivity"):
		return setFloat(&c.Detector.Sensitivity, name, value)
	case KeyToEnvVar("detector.min_samples"):
		return setInt(&c.Detector.MinSamples, name, value)
	case KeyToEnvVar("detector.trend_window"):
		return setInt(&c.Detector.TrendWindow, name, value)
	case KeyToEnvVar("detector.volatility_factor"):
		return setFloat(&c.Detector.VolatilityFactor, name, value)
	case KeyToEnvVar("detector.min_r_squared"):
		return setFloat(&c.Detector.MinRSquared, name, value)
	case KeyToEnvVar("detector.change_threshold_pct"):
		return setFloat(&c.Detector.ChangeThresholdPct, name, value)
	case KeyToEnvVar("baselines.dir"):
		c.Baselines.Dir = value
		return nil
	case KeyToEnvVar("baselines.duration_threshold"):
		return setFloat(&c.Baselines.DurationThreshold, name, value)
	case KeyToEnvVar("baselines.memory_threshold"):
		return setFloat(&c.Baselines.MemoryThreshold, name, value)
	case KeyToEnvVar("baselines.cpu_threshold"):
		return setFloat(&c.Baselines.CPUThreshold, name, value)
	case KeyToEnvVar("gate.fail_on"):
		c.Gate.FailOn = value
		return nil
	default:
		return nil // unrelated PERFGUARD_ variable
	}
}

func setInt(dst *int, name, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: '%s' is not an integer", name, value)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, name, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: '%s' is not a number", name, value)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, name, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: '%s' is not a boolean", name, value)
	}
	*dst = b
	return nil
}
