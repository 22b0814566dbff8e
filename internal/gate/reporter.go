package gate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatCLI formats gate violations for terminal output.
// Output includes test name, metric, severity, and the blocking threshold.
func FormatCLI(result Result) string {
	if result.Passed || len(result.Violations) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("❌ Performance gate failed:\n\n")

	for _, v := range result.Violations {
		sb.WriteString(fmt.Sprintf("  Test: %s\n", v.TestName))
		sb.WriteString(fmt.Sprintf("  Metric: %s\n", v.MetricName))
		sb.WriteString(fmt.Sprintf("  Severity: %s (blocks at %s)\n", v.Severity, v.Threshold))
		sb.WriteString(fmt.Sprintf("  Detail: %s\n", v.Message))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Run blocked: %d violation(s)\n", len(result.Violations)))
	return sb.String()
}

// FormatCI formats gate violations as GitHub Actions error annotations.
func FormatCI(result Result) string {
	if result.Passed || len(result.Violations) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, v := range result.Violations {
		sb.WriteString(fmt.Sprintf("::error::Performance gate: %s %s is %s (blocks at %s): %s\n",
			v.TestName, v.MetricName, v.Severity, v.Threshold, v.Message))
	}
	sb.WriteString(fmt.Sprintf("\n❌ Performance gate failed: %d violation(s)\n", len(result.Violations)))
	return sb.String()
}

// FormatJSON formats the gate result as JSON.
func FormatJSON(result Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
