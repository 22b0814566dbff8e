package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"perfguard/internal/baseline"
	"perfguard/internal/cli"
	"perfguard/internal/config"
	"perfguard/internal/export"
	"perfguard/internal/fingerprint"
	"perfguard/internal/gate"
	"perfguard/internal/metrics"
	"perfguard/internal/regression"
	"perfguard/internal/runner"
)

func main() {
	exitCode := run(os.Args[1:], os.Environ(), os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// run orchestrates the full execution flow.
// It returns an exit code (0 for success, non-zero for failure).
// This function is separated from main() to enable testing.
func run(args []string, environ []string, stdout, stderr io.Writer) int {
	cmd, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))

	cfg, err := loadConfig(cmd, environ)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 3
	}

	switch cmd.Subcommand {
	case cli.SubcommandFingerprint:
		return runFingerprint(cmd, stdout, stderr)
	case cli.SubcommandRun:
		return runCommand(cmd, cfg, environ, stdout, stderr)
	case cli.SubcommandBaseline:
		return runBaseline(cmd, cfg, logger, stdout, stderr)
	case cli.SubcommandTrends:
		return runTrends(cmd, cfg, stdout, stderr)
	case cli.SubcommandCheck:
		return runCheck(cmd, cfg, logger, stdout, stderr)
	case cli.SubcommandServe:
		return runServe(cmd, logger, stderr)
	}

	fmt.Fprintln(stderr, "Error:", cli.ErrNoSubcommand)
	return 1
}

// loadConfig reads the project config and applies environment overrides.
func loadConfig(cmd cli.Command, environ []string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if cmd.ConfigPath != "" {
		cfg, err = config.LoadFromPath(cmd.ConfigPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	return config.ApplyEnv(cfg, environ)
}

func runFingerprint(cmd cli.Command, stdout, stderr io.Writer) int {
	policyID, err := hex.DecodeString(cmd.PolicyID)
	if err != nil {
		fmt.Fprintf(stderr, "invalid policy id: %v\n", err)
		return 1
	}
	assetName, err := hex.DecodeString(cmd.AssetName)
	if err != nil {
		fmt.Fprintf(stderr, "invalid asset name: %v\n", err)
		return 1
	}

	fp, err := fingerprint.GenerateStrict(policyID, assetName)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	if cmd.JSONOutput {
		out, err := json.MarshalIndent(map[string]string{
			"policy_id":   cmd.PolicyID,
			"asset_name":  cmd.AssetName,
			"fingerprint": fp,
		}, "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
		return 0
	}

	fmt.Fprintln(stdout, fp)
	return 0
}

func runCommand(cmd cli.Command, cfg config.Config, environ []string, stdout, stderr io.Writer) int {
	result, err := runner.Run(context.Background(), runner.Options{
		Name:    cmd.Name,
		Command: append([]string{cmd.Target}, cmd.Args...),
		Environ: environ,
		Stdout:  stdout,
		Stderr:  stderr,
		Monitor: cfg.MonitorConfig(),
	})
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return result.ExitCode
	}

	if cmd.Save {
		store := metrics.NewHistoryStore(historyPath(cmd))
		if err := store.Append(result.Sample); err != nil {
			fmt.Fprintf(stderr, "failed to save sample: %v\n", err)
			return 1
		}
	}

	if cmd.JSONOutput {
		out, err := json.MarshalIndent(result.Sample, "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
	} else {
		s := result.Sample
		fmt.Fprintf(stderr, "%s: %.3fs, peak %.1fMB, cpu %.1f%% (exit %d)\n",
			s.TestName, s.DurationSeconds, float64(s.MemoryPeak)/1024/1024, s.CPUPercent, result.ExitCode)
	}

	return result.ExitCode
}

func runBaseline(cmd cli.Command, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	manager := baseline.NewManager(baselinesDir(cmd, cfg), logger)

	switch cmd.BaselineAction {
	case cli.BaselineCreate:
		samples, err := metrics.NewHistoryStore(historyPath(cmd)).Load()
		if err != nil {
			fmt.Fprintf(stderr, "failed to load history: %v\n", err)
			return 1
		}

		th := cfg.Thresholds()
		if cmd.DurationTh != 0 {
			th.Duration = cmd.DurationTh
		}
		if cmd.MemoryTh != 0 {
			th.Memory = cmd.MemoryTh
		}
		if cmd.CPUTh != 0 {
			th.CPU = cmd.CPUTh
		}

		b, err := manager.CreateBaseline(cmd.TestName, samples, th)
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}

		if cmd.JSONOutput {
			return printJSON(b, stdout, stderr)
		}
		fmt.Fprintf(stdout, "Baseline created for '%s' from %d sample(s): %.3fs mean duration\n",
			b.TestName, b.SampleCount, b.DurationMean)
		return 0

	case cli.BaselineList:
		summaries := manager.Summaries()
		if cmd.JSONOutput {
			return printJSON(summaries, stdout, stderr)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(stdout, "No baselines stored.")
			return 0
		}
		for _, s := range summaries {
			fmt.Fprintf(stdout, "%s  samples=%d  duration=%.3fs  memory=%.1fMB  cpu=%.1f%%\n",
				s.TestName, s.SampleCount, s.DurationMean, s.MemoryPeakMeanMB, s.CPUPercentMean)
		}
		return 0

	case cli.BaselineDelete:
		if !manager.DeleteBaseline(cmd.TestName) {
			fmt.Fprintf(stderr, "no baseline for test '%s'\n", cmd.TestName)
			return 1
		}
		fmt.Fprintf(stdout, "Baseline deleted for '%s'\n", cmd.TestName)
		return 0
	}

	return 1
}

func runTrends(cmd cli.Command, cfg config.Config, stdout, stderr io.Writer) int {
	history, err := metrics.NewHistoryStore(historyPath(cmd)).Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load history: %v\n", err)
		return 1
	}

	detector := regression.NewDetector(cfg.DetectorConfig())
	trends := detector.AnalyzeTrends(history, cmd.TestName)

	if cmd.JSONOutput {
		return printJSON(trends, stdout, stderr)
	}

	if len(trends) == 0 {
		fmt.Fprintf(stdout, "Not enough samples for '%s' to analyze trends.\n", cmd.TestName)
		return 0
	}

	keys := make([]string, 0, len(trends))
	for k := range trends {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(stdout, "Trends for '%s':\n", cmd.TestName)
	for _, k := range keys {
		tr := trends[k]
		fmt.Fprintf(stdout, "  %-16s %-10s slope=%+.4f r2=%.2f recent=%.3f historical=%.3f (%+.1f%%)\n",
			tr.MetricName, tr.Direction, tr.Slope, tr.RSquared, tr.RecentAverage, tr.HistoricalAverage, tr.PercentageChange)
	}
	return 0
}

func runCheck(cmd cli.Command, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	history, err := metrics.NewHistoryStore(historyPath(cmd)).Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load history: %v\n", err)
		return 1
	}

	var (
		current *metrics.Sample
		past    []metrics.Sample
	)
	for i := range history {
		if history[i].TestName == cmd.TestName {
			if current != nil {
				past = append(past, *current)
			}
			current = &history[i]
		}
	}
	if current == nil {
		fmt.Fprintf(stderr, "no samples for test '%s'\n", cmd.TestName)
		return 1
	}

	manager := baseline.NewManager(baselinesDir(cmd, cfg), logger)
	baselineResults := manager.DetectRegression(*current)

	var storedBaseline *baseline.Baseline
	if b, ok := manager.GetBaseline(cmd.TestName); ok {
		storedBaseline = &b
	}

	detector := regression.NewDetector(cfg.DetectorConfig())
	alerts := detector.DetectAdvancedRegressions(*current, past, storedBaseline)

	policy := cfg.GatePolicy()
	if cmd.FailOn != "" {
		severity := regression.Severity(cmd.FailOn)
		if severity.Rank() == 0 {
			fmt.Fprintf(stderr, "invalid --fail-on severity '%s', must be one of: low, medium, high, critical\n", cmd.FailOn)
			return 1
		}
		policy.FailOn = severity
	}

	result := gate.Evaluate(policy, alerts)
	baselineGate := gate.EvaluateBaseline(policy, baselineResults)
	result.Violations = append(result.Violations, baselineGate.Violations...)
	result.Passed = result.Passed && baselineGate.Passed

	switch {
	case cmd.JSONOutput:
		payload := struct {
			Sample          metrics.Sample              `json:"sample"`
			BaselineResults []baseline.RegressionResult `json:"baseline_results"`
			Alerts          []regression.Alert          `json:"alerts"`
			Summary         regression.Summary          `json:"summary"`
			Gate            gate.Result                 `json:"gate"`
		}{*current, baselineResults, alerts, regression.Summarize(alerts), result}
		if code := printJSON(payload, stdout, stderr); code != 0 {
			return code
		}
	case cmd.CIMode:
		fmt.Fprint(stdout, baseline.FormatCI(baselineResults))
		fmt.Fprint(stdout, regression.FormatCI(alerts))
		fmt.Fprint(stdout, gate.FormatCI(result))
	default:
		fmt.Fprint(stdout, baseline.FormatCLI(baselineResults))
		fmt.Fprint(stdout, regression.FormatCLI(alerts))
		fmt.Fprint(stdout, gate.FormatCLI(result))
		if result.Passed {
			fmt.Fprintf(stdout, "✅ '%s' within thresholds\n", cmd.TestName)
		}
	}

	if !result.Passed {
		return 1
	}
	return 0
}

func runServe(cmd cli.Command, logger *slog.Logger, stderr io.Writer) int {
	history, err := metrics.NewHistoryStore(historyPath(cmd)).Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load history: %v\n", err)
		return 1
	}

	exporter := export.NewExporter()
	for _, s := range history {
		exporter.RecordSample(s)
	}

	addr := cmd.Addr
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())

	logger.Info("serving metrics", "addr", addr, "samples", len(history))
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func historyPath(cmd cli.Command) string {
	if cmd.HistoryPath != "" {
		return cmd.HistoryPath
	}
	return metrics.DefaultHistoryPath()
}

func baselinesDir(cmd cli.Command, cfg config.Config) string {
	if cmd.BaselinesDir != "" {
		return cmd.BaselinesDir
	}
	if cfg.Baselines.Dir != "" {
		return cfg.Baselines.Dir
	}
	return baseline.DefaultDir()
}

func printJSON(v any, stdout, stderr io.Writer) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))
	return 0
}
