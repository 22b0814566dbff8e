package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"perfguard/internal/metrics"
)

// ErrNoSamples is returned when a baseline is requested from an empty
// sample set or when no sample matches the test name. Callers are expected
// to filter or collect samples before asking for a baseline.
var ErrNoSamples = errors.New("cannot create baseline from empty sample set")

// Manager owns the baseline directory and an in-memory index of all
// persisted baselines. Construct one explicitly and pass it down; there is
// no package-level instance.
//
// Known limitation: the manager does no locking. Concurrent create/delete
// of the same test name from multiple processes is last-writer-wins. The
// store is a test-harness utility, not a shared service.
type Manager struct {
	dir       string
	logger    *slog.Logger
	baselines map[string]Baseline
}

// NewManager creates a manager rooted at dir and loads every persisted
// baseline. Corrupt or unreadable files are skipped with a warning; they
// never fail construction.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		dir:       dir,
		logger:    logger,
		baselines: make(map[string]Baseline),
	}
	m.loadBaselines()
	return m
}

// DefaultDir returns the default baseline directory (~/.perfguard/baselines).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".perfguard", "baselines")
	}
	return filepath.Join(home, ".perfguard", "baselines")
}

// Dir returns the directory backing this manager.
func (m *Manager) Dir() string { return m.dir }

// loadBaselines reads every *.json file in the directory into the index.
func (m *Manager) loadBaselines() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("failed to read baseline directory", "dir", m.dir, "error", err)
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			m.logger.Warn("failed to read baseline file", "path", path, "error", err)
			continue
		}

		var b Baseline
		if err := json.Unmarshal(data, &b); err != nil {
			m.logger.Warn("skipping malformed baseline file", "path", path, "error", err)
			continue
		}
		if b.TestName == "" {
			m.logger.Warn("skipping baseline file without test name", "path", path)
			continue
		}

		m.baselines[b.TestName] = b
	}
}

// CreateBaseline computes a baseline over the samples matching testName and
// persists it, replacing any existing baseline for that name.
// The standard deviation of a single-sample set is 0, not an error.
func (m *Manager) CreateBaseline(testName string, samples []metrics.Sample, th Thresholds) (Baseline, error) {
	if len(samples) == 0 {
		return Baseline{}, ErrNoSamples
	}

	var matched []metrics.Sample
	for _, s := range samples {
		if s.TestName == testName {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return Baseline{}, fmt.Errorf("%w: no samples for test %q", ErrNoSamples, testName)
	}

	durations := make([]float64, len(matched))
	memoryPeaks := make([]float64, len(matched))
	memoryDeltas := make([]float64, len(matched))
	cpuPercents := make([]float64, len(matched))
	for i, s := range matched {
		durations[i] = s.DurationSeconds
		memoryPeaks[i] = float64(s.MemoryPeak)
		memoryDeltas[i] = float64(s.MemoryDelta)
		cpuPercents[i] = s.CPUPercent
	}

	th = th.normalized()
	b := Baseline{
		TestName:     testName,
		BaselineDate: time.Now().UTC(),
		SampleCount:  len(matched),

		DurationMean: mean(durations),
		DurationStd:  sampleStdDev(durations),
		DurationMin:  minOf(durations),
		DurationMax:  maxOf(durations),

		MemoryPeakMean:  int64(mean(memoryPeaks)),
		MemoryPeakStd:   sampleStdDev(memoryPeaks),
		MemoryDeltaMean: int64(mean(memoryDeltas)),
		MemoryDeltaStd:  sampleStdDev(memoryDeltas),

		CPUPercentMean: mean(cpuPercents),
		CPUPercentStd:  sampleStdDev(cpuPercents),

		DurationThresholdFactor: th.Duration,
		MemoryThresholdFactor:   th.Memory,
		CPUThresholdFactor:      th.CPU,
	}

	if err := m.save(b); err != nil {
		return Baseline{}, fmt.Errorf("persist baseline %q: %w", testName, err)
	}
	m.baselines[testName] = b

	return b, nil
}

// GetBaseline looks up a baseline by test name.
func (m *Manager) GetBaseline(testName string) (Baseline, bool) {
	b, ok := m.baselines[testName]
	return b, ok
}

// DeleteBaseline removes a baseline from the index and from disk.
// Returns whether a baseline existed and was removed.
func (m *Manager) DeleteBaseline(testName string) bool {
	if _, ok := m.baselines[testName]; !ok {
		return false
	}

	delete(m.baselines, testName)

	path := m.path(testName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to remove baseline file", "path", path, "error", err)
	}

	return true
}

// ListBaselines returns the sorted test names of all stored baselines.
func (m *Manager) ListBaselines() []string {
	names := make([]string, 0, len(m.baselines))
	for name := range m.baselines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summaries returns a lightweight view of every stored baseline, sorted by
// test name.
func (m *Manager) Summaries() []Summary {
	summaries := make([]Summary, 0, len(m.baselines))
	for _, name := range m.ListBaselines() {
		b := m.baselines[name]
		summaries = append(summaries, Summary{
			TestName:         b.TestName,
			BaselineDate:     b.BaselineDate,
			SampleCount:      b.SampleCount,
			DurationMean:     b.DurationMean,
			MemoryPeakMeanMB: float64(b.MemoryPeakMean) / 1024 / 1024,
			CPUPercentMean:   b.CPUPercentMean,
		})
	}
	return summaries
}

// DetectRegression compares a current sample against its stored baseline.
// With a baseline present it returns exactly one result per tracked metric
// (duration, memory, cpu). A value is a regression only when it strictly
// exceeds mean*threshold; equality is not a regression. Without a baseline
// it returns a single no_baseline sentinel with HasRegression false.
func (m *Manager) DetectRegression(current metrics.Sample) []RegressionResult {
	b, ok := m.baselines[current.TestName]
	if !ok {
		return []RegressionResult{{
			TestName:       current.TestName,
			HasRegression:  false,
			RegressionType: "none",
			MetricName:     "no_baseline",
			Message:        fmt.Sprintf("No baseline found for test %q", current.TestName),
		}}
	}

	results := make([]RegressionResult, 0, 3)

	durationChange := percentChange(current.DurationSeconds, b.DurationMean)
	durationRegression := current.DurationSeconds > b.DurationMean*b.DurationThresholdFactor
	results = append(results, RegressionResult{
		TestName:          current.TestName,
		HasRegression:     durationRegression,
		RegressionType:    resultType("duration", durationRegression),
		CurrentValue:      current.DurationSeconds,
		BaselineValue:     b.DurationMean,
		PercentageChange:  durationChange,
		ThresholdExceeded: durationRegression,
		MetricName:        "duration_seconds",
		ThresholdFactor:   b.DurationThresholdFactor,
		Message: fmt.Sprintf("Duration: %.3fs vs baseline %.3fs (%+.1f%%)",
			current.DurationSeconds, b.DurationMean, durationChange),
	})

	memoryChange := percentChange(float64(current.MemoryPeak), float64(b.MemoryPeakMean))
	memoryRegression := float64(current.MemoryPeak) > float64(b.MemoryPeakMean)*b.MemoryThresholdFactor
	results = append(results, RegressionResult{
		TestName:          current.TestName,
		HasRegression:     memoryRegression,
		RegressionType:    resultType("memory", memoryRegression),
		CurrentValue:      float64(current.MemoryPeak),
		BaselineValue:     float64(b.MemoryPeakMean),
		PercentageChange:  memoryChange,
		ThresholdExceeded: memoryRegression,
		MetricName:        "memory_peak",
		ThresholdFactor:   b.MemoryThresholdFactor,
		Message: fmt.Sprintf("Memory: %.1fMB vs baseline %.1fMB (%+.1f%%)",
			float64(current.MemoryPeak)/1024/1024, float64(b.MemoryPeakMean)/1024/1024, memoryChange),
	})

	// CPU means near zero are common for fast tests; clamp the denominator
	// so the reported change stays finite.
	cpuChange := (current.CPUPercent - b.CPUPercentMean) / math.Max(b.CPUPercentMean, 0.1) * 100
	cpuRegression := current.CPUPercent > b.CPUPercentMean*b.CPUThresholdFactor
	results = append(results, RegressionResult{
		TestName:          current.TestName,
		HasRegression:     cpuRegression,
		RegressionType:    resultType("cpu", cpuRegression),
		CurrentValue:      current.CPUPercent,
		BaselineValue:     b.CPUPercentMean,
		PercentageChange:  cpuChange,
		ThresholdExceeded: cpuRegression,
		MetricName:        "cpu_percent",
		ThresholdFactor:   b.CPUThresholdFactor,
		Message: fmt.Sprintf("CPU: %.1f%% vs baseline %.1f%% (%+.1f%%)",
			current.CPUPercent, b.CPUPercentMean, cpuChange),
	})

	return results
}

// save writes a baseline to its JSON file, creating the directory if needed.
func (m *Manager) save(b Baseline) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.path(b.TestName), data, 0644)
}

// path returns the file path for a test name, sanitized for the filesystem.
func (m *Manager) path(testName string) string {
	safe := strings.ReplaceAll(testName, "/", "_")
	safe = strings.ReplaceAll(safe, "\\", "_")
	safe = strings.ReplaceAll(safe, "::", "_")
	return filepath.Join(m.dir, safe+".json")
}

func resultType(metric string, regressed bool) string {
	if regressed {
		return metric
	}
	return "none"
}

// percentChange reports (current-base)/base*100, or 0 for a zero base.
func percentChange(current, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (current - base) / base * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// sampleStdDev is the n-1 standard deviation; 0 for fewer than 2 values.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
