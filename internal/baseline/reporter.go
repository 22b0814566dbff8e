package baseline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatCLI formats regression results for terminal output.
// Returns an empty string when nothing regressed.
func FormatCLI(results []RegressionResult) string {
	var regressed []RegressionResult
	for _, r := range results {
		if r.HasRegression {
			regressed = append(regressed, r)
		}
	}
	if len(regressed) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠️  Performance regression detected for '%s':\n", regressed[0].TestName))
	for _, r := range regressed {
		sb.WriteString(fmt.Sprintf("  ! %s\n", r.Message))
	}
	return sb.String()
}

// FormatCI formats regression results as GitHub Actions annotations.
func FormatCI(results []RegressionResult) string {
	var sb strings.Builder
	for _, r := range results {
		if !r.HasRegression {
			continue
		}
		sb.WriteString(fmt.Sprintf("::warning::Performance regression in %s: %s\n", r.TestName, r.Message))
	}
	return sb.String()
}

// FormatJSON formats regression results as JSON.
func FormatJSON(results []RegressionResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
