package gate

import (
	"perfguard/internal/baseline"
	"perfguard/internal/regression"
)

// Evaluate checks regression alerts against the policy.
// Returns a Result with all violations (does not short-circuit).
// Per-metric thresholds take precedence over the global FailOn.
// Alerts below their threshold pass without violation.
func Evaluate(p Policy, alerts []regression.Alert) Result {
	result := Result{
		Passed:     true,
		Violations: []Violation{},
	}

	for _, a := range alerts {
		threshold := p.thresholdFor(a.MetricName)
		if a.Severity.Rank() < threshold.Rank() {
			continue
		}
		result.Violations = append(result.Violations, Violation{
			TestName:   a.TestName,
			MetricName: a.MetricName,
			Severity:   a.Severity,
			Threshold:  threshold,
			Message:    a.Message,
		})
		result.Passed = false
	}

	return result
}

// EvaluateBaseline checks plain baseline comparisons against the policy.
// Baseline results carry no severity grading, so every regression counts
// as a high-severity violation.
func EvaluateBaseline(p Policy, results []baseline.RegressionResult) Result {
	result := Result{
		Passed:     true,
		Violations: []Violation{},
	}

	for _, r := range results {
		if !r.HasRegression {
			continue
		}
		result.Violations = append(result.Violations, Violation{
			TestName:   r.TestName,
			MetricName: r.MetricName,
			Severity:   regression.SeverityHigh,
			Threshold:  p.thresholdFor(r.MetricName),
			Message:    r.Message,
		})
		result.Passed = false
	}

	return result
}

func (p Policy) thresholdFor(metricName string) regression.Severity {
	if t, ok := p.PerMetric[metricName]; ok {
		return t
	}
	if p.FailOn != "" {
		return p.FailOn
	}
	return regression.SeverityMedium
}
