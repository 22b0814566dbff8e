// Package regression analyzes performance samples for trends and detects
// regressions with statistical context. It complements the baseline package:
// baselines answer "is this run worse than the recorded norm", trends answer
// "which way has this test been heading".
package regression

import "time"

// Direction classifies how a metric has been moving over recent samples.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionStable    Direction = "stable"
	DirectionDegrading Direction = "degrading"
	DirectionVolatile  Direction = "volatile"
)

// Severity grades a regression alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for comparison; higher is worse. Unknown values
// rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Interval is a symmetric confidence band around a predicted value.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// TrendAnalysis summarizes one metric's movement across a test's history.
type TrendAnalysis struct {
	MetricName string    `json:"metric_name"`
	Direction  Direction `json:"direction"`
	Slope      float64   `json:"slope"`
	RSquared   float64   `json:"r_squared"`
	Volatility float64   `json:"volatility"`

	RecentAverage     float64 `json:"recent_average"`
	HistoricalAverage float64 `json:"historical_average"`
	PercentageChange  float64 `json:"percentage_change"`

	PredictedNextValue *float64  `json:"predicted_next_value,omitempty"`
	ConfidenceInterval *Interval `json:"confidence_interval,omitempty"`
}

// Context carries the trend statistics that motivated an alert.
type Context struct {
	RecentAverage     float64 `json:"recent_average"`
	HistoricalAverage float64 `json:"historical_average"`
	Volatility        float64 `json:"volatility"`
	RSquared          float64 `json:"r_squared"`
}

// Alert reports one detected regression for one metric of one test.
type Alert struct {
	TestName string   `json:"test_name"`
	Severity Severity `json:"severity"`

	MetricName          string  `json:"metric_name"`
	CurrentValue        float64 `json:"current_value"`
	ExpectedValue       float64 `json:"expected_value"`
	DeviationPercentage float64 `json:"deviation_percentage"`

	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	HasRegression bool      `json:"has_regression"`

	TrendAnalysis     *TrendAnalysis `json:"trend_analysis,omitempty"`
	HistoricalContext *Context       `json:"historical_context,omitempty"`
}

// MostCritical identifies the worst alert in a summary.
type MostCritical struct {
	TestName   string   `json:"test_name"`
	MetricName string   `json:"metric"`
	Severity   Severity `json:"severity"`
	Deviation  float64  `json:"deviation"`
	Message    string   `json:"message"`
}

// Summary aggregates a batch of alerts for reporting.
type Summary struct {
	TotalAlerts  int              `json:"total_alerts"`
	BySeverity   map[Severity]int `json:"by_severity"`
	ByMetric     map[string]int   `json:"by_metric"`
	MostCritical *MostCritical    `json:"most_critical"`
}
