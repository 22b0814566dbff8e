package regression

import (
	"fmt"
	"math"
	"sort"
	"time"

	"perfguard/internal/baseline"
	"perfguard/internal/metrics"
)

// Config tunes the detector. Zero fields fall back to the defaults.
type Config struct {
	// Sensitivity scales the regression threshold: 0.5 is less sensitive,
	// 2.0 is more sensitive.
	Sensitivity float64

	// MinSamples is the minimum history length before trends are analyzed.
	MinSamples int

	// TrendWindow caps how many recent samples form the "recent" average.
	TrendWindow int

	// VolatilityFactor marks a trend volatile when the stddev of successive
	// changes exceeds |slope| times this factor.
	VolatilityFactor float64

	// MinRSquared is the fit quality below which a trend is called stable.
	MinRSquared float64

	// ChangeThresholdPct is the recent-vs-historical percentage change
	// needed before a sloped trend counts as degrading or improving.
	ChangeThresholdPct float64
}

// DefaultConfig returns the standard detector tuning.
func DefaultConfig() Config {
	return Config{
		Sensitivity:        1.0,
		MinSamples:         3,
		TrendWindow:        10,
		VolatilityFactor:   10,
		MinRSquared:        0.3,
		ChangeThresholdPct: 5,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Sensitivity == 0 {
		c.Sensitivity = d.Sensitivity
	}
	if c.MinSamples == 0 {
		c.MinSamples = d.MinSamples
	}
	if c.TrendWindow == 0 {
		c.TrendWindow = d.TrendWindow
	}
	if c.VolatilityFactor == 0 {
		c.VolatilityFactor = d.VolatilityFactor
	}
	if c.MinRSquared == 0 {
		c.MinRSquared = d.MinRSquared
	}
	if c.ChangeThresholdPct == 0 {
		c.ChangeThresholdPct = d.ChangeThresholdPct
	}
	return c
}

// Default per-metric threshold factors used when no baseline is supplied.
const (
	defaultDurationFactor = 1.5
	defaultMemoryFactor   = 1.3
	defaultCPUFactor      = 1.4
)

// Detector performs trend analysis and statistical regression detection.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given config; zero fields take
// the defaults.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.normalized()}
}

// AnalyzeTrends analyzes the history of one test and returns a trend per
// tracked metric, keyed "duration", "memory_peak", "cpu_percent" and
// "memory_delta". History shorter than MinSamples yields an empty map.
func (d *Detector) AnalyzeTrends(history []metrics.Sample, testName string) map[string]TrendAnalysis {
	var matched []metrics.Sample
	for _, s := range history {
		if s.TestName == testName {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	if len(matched) < d.cfg.MinSamples {
		return map[string]TrendAnalysis{}
	}

	n := len(matched)
	durations := make([]float64, n)
	memoryPeaks := make([]float64, n)
	cpuPercents := make([]float64, n)
	memoryDeltas := make([]float64, n)
	for i, s := range matched {
		durations[i] = s.DurationSeconds
		memoryPeaks[i] = float64(s.MemoryPeak)
		cpuPercents[i] = s.CPUPercent
		memoryDeltas[i] = float64(s.MemoryDelta)
	}

	return map[string]TrendAnalysis{
		"duration":     d.analyzeMetricTrend("duration_seconds", durations),
		"memory_peak":  d.analyzeMetricTrend("memory_peak", memoryPeaks),
		"cpu_percent":  d.analyzeMetricTrend("cpu_percent", cpuPercents),
		"memory_delta": d.analyzeMetricTrend("memory_delta", memoryDeltas),
	}
}

func (d *Detector) analyzeMetricTrend(metricName string, values []float64) TrendAnalysis {
	n := len(values)
	if n < 2 {
		first := 0.0
		if n == 1 {
			first = values[0]
		}
		return TrendAnalysis{
			MetricName:        metricName,
			Direction:         DirectionStable,
			RecentAverage:     first,
			HistoricalAverage: first,
		}
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	slope, rSquared := linearRegression(xs, values)

	// Volatility is the spread of run-to-run changes, not of the values.
	changes := make([]float64, n-1)
	for i := 1; i < n; i++ {
		changes[i-1] = values[i] - values[i-1]
	}
	volatility := sampleStdDev(changes)

	recentWindow := d.cfg.TrendWindow
	if half := n / 2; half < recentWindow {
		recentWindow = half
	}
	recentValues := values
	historicalValues := values
	if recentWindow > 0 {
		recentValues = values[n-recentWindow:]
		if recentWindow < n {
			historicalValues = values[:n-recentWindow]
		}
	}

	recentAvg := mean(recentValues)
	historicalAvg := recentAvg
	if len(historicalValues) > 0 {
		historicalAvg = mean(historicalValues)
	}

	percentageChange := 0.0
	if historicalAvg != 0 {
		percentageChange = (recentAvg - historicalAvg) / historicalAvg * 100
	}

	direction := d.classifyDirection(slope, rSquared, volatility, percentageChange)

	predicted := values[n-1] + slope

	intercept := mean(values) - slope*mean(xs)
	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = values[i] - (slope*xs[i] + intercept)
	}
	residualStd := sampleStdDev(residuals)

	return TrendAnalysis{
		MetricName:         metricName,
		Direction:          direction,
		Slope:              slope,
		RSquared:           rSquared,
		Volatility:         volatility,
		RecentAverage:      recentAvg,
		HistoricalAverage:  historicalAvg,
		PercentageChange:   percentageChange,
		PredictedNextValue: &predicted,
		ConfidenceInterval: &Interval{
			Lower: predicted - 2*residualStd,
			Upper: predicted + 2*residualStd,
		},
	}
}

// classifyDirection applies the tie-break order: volatile first, then a weak
// fit is stable, then slope and percentage change decide.
func (d *Detector) classifyDirection(slope, rSquared, volatility, percentageChange float64) Direction {
	if volatility > math.Abs(slope)*d.cfg.VolatilityFactor {
		return DirectionVolatile
	}
	if rSquared < d.cfg.MinRSquared {
		return DirectionStable
	}
	if slope > 0 && percentageChange > d.cfg.ChangeThresholdPct {
		return DirectionDegrading
	}
	if slope < 0 && percentageChange < -d.cfg.ChangeThresholdPct {
		return DirectionImproving
	}
	return DirectionStable
}

// DetectAdvancedRegressions combines trend analysis with baseline data to
// produce severity-graded alerts for the current sample. The baseline may be
// nil; trends then supply the expected values and default threshold factors
// apply.
func (d *Detector) DetectAdvancedRegressions(current metrics.Sample, history []metrics.Sample, b *baseline.Baseline) []Alert {
	combined := make([]metrics.Sample, 0, len(history)+1)
	combined = append(combined, history...)
	combined = append(combined, current)

	trends := d.AnalyzeTrends(combined, current.TestName)

	var alerts []Alert

	if trend, ok := trends["duration"]; ok {
		var baselineValue *float64
		factor := defaultDurationFactor
		if b != nil {
			v := b.DurationMean
			baselineValue = &v
			factor = b.DurationThresholdFactor
		}
		if alert := d.checkMetricRegression("duration_seconds", current.DurationSeconds, trend, baselineValue, factor); alert != nil {
			alert.TestName = current.TestName
			alerts = append(alerts, *alert)
		}
	}

	if trend, ok := trends["memory_peak"]; ok {
		var baselineValue *float64
		factor := defaultMemoryFactor
		if b != nil {
			v := float64(b.MemoryPeakMean)
			baselineValue = &v
			factor = b.MemoryThresholdFactor
		}
		if alert := d.checkMetricRegression("memory_peak", float64(current.MemoryPeak), trend, baselineValue, factor); alert != nil {
			alert.TestName = current.TestName
			alerts = append(alerts, *alert)
		}
	}

	if trend, ok := trends["cpu_percent"]; ok {
		var baselineValue *float64
		factor := defaultCPUFactor
		if b != nil {
			v := b.CPUPercentMean
			baselineValue = &v
			factor = b.CPUThresholdFactor
		}
		if alert := d.checkMetricRegression("cpu_percent", current.CPUPercent, trend, baselineValue, factor); alert != nil {
			alert.TestName = current.TestName
			alerts = append(alerts, *alert)
		}
	}

	return alerts
}

func (d *Detector) checkMetricRegression(metricName string, currentValue float64, trend TrendAnalysis, baselineValue *float64, thresholdFactor float64) *Alert {
	expected := trend.HistoricalAverage
	if baselineValue != nil {
		expected = *baselineValue
	}
	if expected == 0 {
		return nil // no reference to compare against
	}

	deviation := (currentValue - expected) / expected * 100

	adjusted := thresholdFactor
	switch trend.Direction {
	case DirectionDegrading:
		adjusted /= d.cfg.Sensitivity
	case DirectionImproving:
		adjusted *= d.cfg.Sensitivity
	}

	if currentValue <= expected*adjusted {
		return nil
	}

	message := fmt.Sprintf("%s regression: %.3f vs expected %.3f (%+.1f%%)",
		metricName, currentValue, expected, deviation)
	if trend.Direction != DirectionStable {
		message += fmt.Sprintf(" [Trend: %s]", trend.Direction)
	}

	trendCopy := trend
	return &Alert{
		Severity:            d.determineSeverity(deviation, trend),
		MetricName:          metricName,
		CurrentValue:        currentValue,
		ExpectedValue:       expected,
		DeviationPercentage: deviation,
		Message:             message,
		Timestamp:           time.Now().UTC(),
		HasRegression:       true,
		TrendAnalysis:       &trendCopy,
		HistoricalContext: &Context{
			RecentAverage:     trend.RecentAverage,
			HistoricalAverage: trend.HistoricalAverage,
			Volatility:        trend.Volatility,
			RSquared:          trend.RSquared,
		},
	}
}

// determineSeverity grades by absolute deviation, then adjusts once for the
// trend: a degrading trend promotes low and medium, a volatile trend demotes
// critical and high since the signal is less reliable.
func (d *Detector) determineSeverity(deviationPercentage float64, trend TrendAnalysis) Severity {
	abs := math.Abs(deviationPercentage)

	var base Severity
	switch {
	case abs >= 100:
		base = SeverityCritical
	case abs >= 50:
		base = SeverityHigh
	case abs >= 25:
		base = SeverityMedium
	default:
		base = SeverityLow
	}

	switch trend.Direction {
	case DirectionDegrading:
		if base == SeverityLow {
			return SeverityMedium
		}
		if base == SeverityMedium {
			return SeverityHigh
		}
	case DirectionVolatile:
		if base == SeverityCritical {
			return SeverityHigh
		}
		if base == SeverityHigh {
			return SeverityMedium
		}
	}

	return base
}

// Summarize aggregates alerts into counts and picks the worst one: the
// largest absolute deviation among criticals, then among highs, then among
// all alerts.
func Summarize(alerts []Alert) Summary {
	if len(alerts) == 0 {
		return Summary{
			BySeverity: map[Severity]int{},
			ByMetric:   map[string]int{},
		}
	}

	bySeverity := make(map[Severity]int)
	byMetric := make(map[string]int)
	for _, a := range alerts {
		bySeverity[a.Severity]++
		byMetric[a.MetricName]++
	}

	pickWorst := func(candidates []Alert) Alert {
		worst := candidates[0]
		for _, a := range candidates[1:] {
			if math.Abs(a.DeviationPercentage) > math.Abs(worst.DeviationPercentage) {
				worst = a
			}
		}
		return worst
	}

	var criticals, highs []Alert
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			criticals = append(criticals, a)
		case SeverityHigh:
			highs = append(highs, a)
		}
	}

	var worst Alert
	switch {
	case len(criticals) > 0:
		worst = pickWorst(criticals)
	case len(highs) > 0:
		worst = pickWorst(highs)
	default:
		worst = pickWorst(alerts)
	}

	return Summary{
		TotalAlerts: len(alerts),
		BySeverity:  bySeverity,
		ByMetric:    byMetric,
		MostCritical: &MostCritical{
			TestName:   worst.TestName,
			MetricName: worst.MetricName,
			Severity:   worst.Severity,
			Deviation:  worst.DeviationPercentage,
			Message:    worst.Message,
		},
	}
}
