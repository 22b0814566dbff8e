package regression

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatCLI formats alerts for terminal output.
// Returns an empty string when there are no alerts.
func FormatCLI(alerts []Alert) string {
	if len(alerts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 %d performance regression alert(s):\n", len(alerts)))
	for _, a := range alerts {
		sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n", strings.ToUpper(string(a.Severity)), a.TestName, a.Message))
	}

	summary := Summarize(alerts)
	if summary.MostCritical != nil {
		sb.WriteString(fmt.Sprintf("Most critical: %s (%s, %+.1f%%)\n",
			summary.MostCritical.TestName, summary.MostCritical.Severity, summary.MostCritical.Deviation))
	}
	return sb.String()
}

// FormatCI formats alerts as GitHub Actions annotations. High and critical
// alerts become errors, the rest warnings.
func FormatCI(alerts []Alert) string {
	var sb strings.Builder
	for _, a := range alerts {
		level := "warning"
		if a.Severity == SeverityHigh || a.Severity == SeverityCritical {
			level = "error"
		}
		sb.WriteString(fmt.Sprintf("::%s::Performance regression in %s: %s\n", level, a.TestName, a.Message))
	}
	return sb.String()
}

// FormatJSON formats alerts and their summary as JSON.
func FormatJSON(alerts []Alert) (string, error) {
	payload := struct {
		Alerts  []Alert `json:"alerts"`
		Summary Summary `json:"summary"`
	}{
		Alerts:  alerts,
		Summary: Summarize(alerts),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
