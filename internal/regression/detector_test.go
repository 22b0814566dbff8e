package regression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfguard/internal/baseline"
	"perfguard/internal/metrics"
)

func historyOf(name string, durations ...float64) []metrics.Sample {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]metrics.Sample, len(durations))
	for i, d := range durations {
		samples[i] = metrics.Sample{
			TestName:        name,
			StartTime:       start.Add(time.Duration(i) * time.Hour),
			DurationSeconds: d,
			MemoryPeak:      1 << 20,
			MemoryDelta:     1 << 10,
			CPUPercent:      10,
		}
	}
	return samples
}

func TestAnalyzeTrendsRequiresMinSamples(t *testing.T) {
	d := NewDetector(DefaultConfig())

	trends := d.AnalyzeTrends(historyOf("t", 1.0, 1.1), "t")
	assert.Empty(t, trends)
}

func TestAnalyzeTrendsTracksAllMetrics(t *testing.T) {
	d := NewDetector(DefaultConfig())

	trends := d.AnalyzeTrends(historyOf("t", 1.0, 1.1, 1.2, 1.3), "t")
	for _, key := range []string{"duration", "memory_peak", "cpu_percent", "memory_delta"} {
		assert.Contains(t, trends, key)
	}
	assert.Equal(t, "duration_seconds", trends["duration"].MetricName)
}

func TestAnalyzeTrendsFiltersByTestName(t *testing.T) {
	d := NewDetector(DefaultConfig())

	history := append(historyOf("t", 1.0, 1.0), historyOf("other", 9, 9, 9, 9)...)
	assert.Empty(t, d.AnalyzeTrends(history, "t"), "two matching samples are below the minimum")
}

func TestTrendDirectionDegrading(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Steady monotonic growth: strong fit, low volatility, recent half
	// well above the historical half.
	trends := d.AnalyzeTrends(historyOf("t", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10), "t")
	trend := trends["duration"]

	assert.Equal(t, DirectionDegrading, trend.Direction)
	assert.InDelta(t, 1.0, trend.Slope, 1e-9)
	assert.InDelta(t, 1.0, trend.RSquared, 1e-9)
	assert.Zero(t, trend.Volatility, "constant step size has no volatility")
	assert.Greater(t, trend.RecentAverage, trend.HistoricalAverage)
}

func TestTrendDirectionImproving(t *testing.T) {
	d := NewDetector(DefaultConfig())

	trends := d.AnalyzeTrends(historyOf("t", 10, 9, 8, 7, 6, 5, 4, 3, 2, 1), "t")
	assert.Equal(t, DirectionImproving, trends["duration"].Direction)
}

func TestTrendDirectionStableOnFlatSeries(t *testing.T) {
	d := NewDetector(DefaultConfig())

	trends := d.AnalyzeTrends(historyOf("t", 5, 5, 5, 5, 5, 5), "t")
	trend := trends["duration"]

	assert.Equal(t, DirectionStable, trend.Direction)
	assert.Zero(t, trend.Slope)
	assert.Zero(t, trend.PercentageChange)
}

func TestTrendDirectionVolatile(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Alternating values: near-zero slope but large run-to-run swings.
	trends := d.AnalyzeTrends(historyOf("t", 1, 10, 1, 10, 1, 10, 1, 10), "t")
	assert.Equal(t, DirectionVolatile, trends["duration"].Direction)
}

func TestTrendPrediction(t *testing.T) {
	d := NewDetector(DefaultConfig())

	trends := d.AnalyzeTrends(historyOf("t", 1, 2, 3, 4, 5), "t")
	trend := trends["duration"]

	require.NotNil(t, trend.PredictedNextValue)
	assert.InDelta(t, 6.0, *trend.PredictedNextValue, 1e-9, "next value continues the fitted line")

	require.NotNil(t, trend.ConfidenceInterval)
	// A perfect fit has zero residuals, so the interval collapses.
	assert.InDelta(t, 6.0, trend.ConfidenceInterval.Lower, 1e-9)
	assert.InDelta(t, 6.0, trend.ConfidenceInterval.Upper, 1e-9)
}

func TestDetectRegressionAgainstBaseline(t *testing.T) {
	d := NewDetector(DefaultConfig())

	b := &baseline.Baseline{
		TestName:                "t",
		DurationMean:            1.0,
		MemoryPeakMean:          1 << 30,
		CPUPercentMean:          90,
		DurationThresholdFactor: 1.5,
		MemoryThresholdFactor:   1.3,
		CPUThresholdFactor:      1.4,
	}

	history := historyOf("t", 1, 1, 1, 1, 1)
	current := historyOf("t", 2.0)[0]
	current.StartTime = history[len(history)-1].StartTime.Add(time.Hour)

	alerts := d.DetectAdvancedRegressions(current, history, b)
	require.Len(t, alerts, 1, "only duration doubled; memory and cpu are within their baselines")

	alert := alerts[0]
	assert.Equal(t, "t", alert.TestName)
	assert.Equal(t, "duration_seconds", alert.MetricName)
	assert.Equal(t, SeverityCritical, alert.Severity, "a doubled duration is critical")
	assert.InDelta(t, 100.0, alert.DeviationPercentage, 1e-9)
	assert.InDelta(t, 1.0, alert.ExpectedValue, 1e-9)
	assert.True(t, alert.HasRegression)
	assert.Contains(t, alert.Message, "duration_seconds regression: 2.000 vs expected 1.000 (+100.0%)")
	require.NotNil(t, alert.TrendAnalysis)
	require.NotNil(t, alert.HistoricalContext)
}

func TestDetectRegressionThresholdIsStrict(t *testing.T) {
	d := NewDetector(DefaultConfig())

	b := &baseline.Baseline{
		TestName:                "t",
		DurationMean:            1.0,
		MemoryPeakMean:          1 << 30,
		CPUPercentMean:          90,
		DurationThresholdFactor: 1.5,
		MemoryThresholdFactor:   1.3,
		CPUThresholdFactor:      1.4,
	}

	history := historyOf("t", 1, 1, 1, 1, 1)
	current := historyOf("t", 1.5)[0] // exactly mean * factor
	current.StartTime = history[len(history)-1].StartTime.Add(time.Hour)

	alerts := d.DetectAdvancedRegressions(current, history, b)
	assert.Empty(t, alerts, "a value exactly at the threshold must not alert")
}

func TestDetectRegressionWithoutBaseline(t *testing.T) {
	d := NewDetector(DefaultConfig())

	history := historyOf("t", 2, 2, 2, 2, 2, 2)
	current := historyOf("t", 5.0)[0]
	current.StartTime = history[len(history)-1].StartTime.Add(time.Hour)

	alerts := d.DetectAdvancedRegressions(current, history, nil)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, "duration_seconds", alert.MetricName)
	assert.InDelta(t, 2.0, alert.ExpectedValue, 1e-9, "without a baseline the historical average is the reference")
	assert.InDelta(t, 150.0, alert.DeviationPercentage, 1e-9)
}

func TestDetectRegressionZeroExpectedValue(t *testing.T) {
	d := NewDetector(DefaultConfig())

	b := &baseline.Baseline{TestName: "t"} // all means zero

	history := historyOf("t", 1, 1, 1, 1, 1)
	current := historyOf("t", 100.0)[0]
	current.StartTime = history[len(history)-1].StartTime.Add(time.Hour)

	alerts := d.DetectAdvancedRegressions(current, history, b)
	assert.Empty(t, alerts, "a zero reference cannot support a comparison")
}

func TestDetectRegressionSensitivityTightensThreshold(t *testing.T) {
	b := &baseline.Baseline{
		TestName:                "t",
		DurationMean:            1.0,
		MemoryPeakMean:          1 << 30,
		CPUPercentMean:          90,
		DurationThresholdFactor: 1.5,
		MemoryThresholdFactor:   1.3,
		CPUThresholdFactor:      1.4,
	}

	history := historyOf("t", 1, 1, 1, 1, 1)
	current := historyOf("t", 1.2)[0]
	current.StartTime = history[len(history)-1].StartTime.Add(time.Hour)

	// At default sensitivity a +20% duration stays under the 1.5x factor.
	assert.Empty(t, NewDetector(DefaultConfig()).DetectAdvancedRegressions(current, history, b))

	// Doubling the sensitivity halves the factor for degrading trends.
	cfg := DefaultConfig()
	cfg.Sensitivity = 2.0
	alerts := NewDetector(cfg).DetectAdvancedRegressions(current, history, b)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityMedium, alerts[0].Severity, "low severity promoted by the degrading trend")
}

func TestDetermineSeverity(t *testing.T) {
	d := NewDetector(DefaultConfig())

	tests := []struct {
		name      string
		deviation float64
		direction Direction
		want      Severity
	}{
		{"small deviation", 10, DirectionStable, SeverityLow},
		{"quarter deviation", 30, DirectionStable, SeverityMedium},
		{"half deviation", 60, DirectionStable, SeverityHigh},
		{"doubled", 150, DirectionStable, SeverityCritical},
		{"boundary 25", 25, DirectionStable, SeverityMedium},
		{"boundary 50", 50, DirectionStable, SeverityHigh},
		{"boundary 100", 100, DirectionStable, SeverityCritical},
		{"negative deviation uses magnitude", -60, DirectionStable, SeverityHigh},
		{"degrading promotes low", 10, DirectionDegrading, SeverityMedium},
		{"degrading promotes medium", 30, DirectionDegrading, SeverityHigh},
		{"degrading keeps high", 60, DirectionDegrading, SeverityHigh},
		{"degrading keeps critical", 150, DirectionDegrading, SeverityCritical},
		{"volatile demotes critical", 150, DirectionVolatile, SeverityHigh},
		{"volatile demotes high", 60, DirectionVolatile, SeverityMedium},
		{"volatile keeps medium", 30, DirectionVolatile, SeverityMedium},
		{"volatile keeps low", 10, DirectionVolatile, SeverityLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := d.determineSeverity(tc.deviation, TrendAnalysis{Direction: tc.direction})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
	assert.Zero(t, Severity("bogus").Rank())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalAlerts)
	assert.Empty(t, s.BySeverity)
	assert.Empty(t, s.ByMetric)
	assert.Nil(t, s.MostCritical)
}

func TestSummarizePicksWorstAlert(t *testing.T) {
	alerts := []Alert{
		{TestName: "a", MetricName: "duration_seconds", Severity: SeverityHigh, DeviationPercentage: 80},
		{TestName: "b", MetricName: "memory_peak", Severity: SeverityCritical, DeviationPercentage: 120},
		{TestName: "c", MetricName: "duration_seconds", Severity: SeverityCritical, DeviationPercentage: 200},
		{TestName: "d", MetricName: "cpu_percent", Severity: SeverityLow, DeviationPercentage: 500},
	}

	s := Summarize(alerts)
	assert.Equal(t, 4, s.TotalAlerts)
	assert.Equal(t, 2, s.BySeverity[SeverityCritical])
	assert.Equal(t, 2, s.ByMetric["duration_seconds"])

	require.NotNil(t, s.MostCritical)
	assert.Equal(t, "c", s.MostCritical.TestName, "criticals outrank a larger low-severity deviation")
	assert.InDelta(t, 200.0, s.MostCritical.Deviation, 1e-9)
}

func TestSummarizeFallsBackBelowHigh(t *testing.T) {
	alerts := []Alert{
		{TestName: "a", Severity: SeverityLow, DeviationPercentage: 10},
		{TestName: "b", Severity: SeverityMedium, DeviationPercentage: -40},
	}

	s := Summarize(alerts)
	require.NotNil(t, s.MostCritical)
	assert.Equal(t, "b", s.MostCritical.TestName, "largest absolute deviation wins when no high or critical exists")
}
