// Package gate decides whether a set of regression findings should fail a
// CI run. A policy names the minimum severity that blocks, optionally per
// metric; evaluation collects all violations instead of short-circuiting.
package gate

import "perfguard/internal/regression"

// Policy defines when regression alerts block a run.
type Policy struct {
	// FailOn is the minimum alert severity that fails the gate.
	FailOn regression.Severity

	// PerMetric overrides FailOn for individual metric names
	// (e.g. "duration_seconds": "low").
	PerMetric map[string]regression.Severity
}

// DefaultPolicy fails on medium severity and above.
func DefaultPolicy() Policy {
	return Policy{FailOn: regression.SeverityMedium}
}

// Violation records one alert that crossed the policy threshold.
type Violation struct {
	TestName   string              `json:"test_name"`
	MetricName string              `json:"metric_name"`
	Severity   regression.Severity `json:"severity"`
	Threshold  regression.Severity `json:"threshold"`
	Message    string              `json:"message"`
}

// Result is the full gate evaluation outcome.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}
