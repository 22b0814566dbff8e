// Package cli parses perfguard command line arguments.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoSubcommand is returned when no subcommand is provided.
var ErrNoSubcommand = errors.New("missing subcommand: usage: perfguard <fingerprint|run|baseline|trends|check|serve> [flags] [args...]")

// ErrNoCommand is returned when "run" has no command to execute.
var ErrNoCommand = errors.New("no command provided: usage: perfguard run [flags] <command> [args...]")

// ErrMissingFlagValue is returned when a flag requires a value but none is provided.
var ErrMissingFlagValue = errors.New("flag requires a value")

// ErrMissingTestName is returned when a subcommand needs a test name argument.
var ErrMissingTestName = errors.New("missing test name argument")

// ErrMissingFingerprintInput is returned when "fingerprint" has no policy id.
var ErrMissingFingerprintInput = errors.New("missing policy id: usage: perfguard fingerprint <policy-id-hex> [asset-name-hex]")

// Subcommand represents the CLI subcommand.
type Subcommand string

const (
	SubcommandFingerprint Subcommand = "fingerprint"
	SubcommandRun         Subcommand = "run"
	SubcommandBaseline    Subcommand = "baseline"
	SubcommandTrends      Subcommand = "trends"
	SubcommandCheck       Subcommand = "check"
	SubcommandServe       Subcommand = "serve"
)

// Baseline actions.
const (
	BaselineCreate = "create"
	BaselineList   = "list"
	BaselineDelete = "delete"
)

// Command represents the parsed CLI input.
type Command struct {
	Subcommand     Subcommand
	BaselineAction string // create, list, or delete

	// Fingerprint inputs (hex-encoded).
	PolicyID  string
	AssetName string

	// Run inputs.
	Target string   // the command to execute
	Args   []string // its arguments
	Name   string   // --name <test name>
	Save   bool     // --save (append sample to history)

	// Shared inputs.
	TestName     string  // positional test name for baseline/trends/check
	ConfigPath   string  // --config <path>
	HistoryPath  string  // --history <path>
	BaselinesDir string  // --baselines-dir <path>
	FailOn       string  // --fail-on <severity>
	Addr         string  // --addr <host:port> for serve
	DurationTh   float64 // --duration-threshold
	MemoryTh     float64 // --memory-threshold
	CPUTh        float64 // --cpu-threshold

	CIMode     bool // --ci
	JSONOutput bool // --json
}

// ParseArgs parses CLI arguments into a Command.
// It expects args to be os.Args[1:] (excluding the program name).
func ParseArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrNoSubcommand
	}

	cmd := Command{Subcommand: Subcommand(args[0])}
	rest := args[1:]

	switch cmd.Subcommand {
	case SubcommandFingerprint, SubcommandRun, SubcommandTrends, SubcommandCheck, SubcommandServe:
	case SubcommandBaseline:
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("missing baseline action: usage: perfguard baseline <create|list|delete> [flags] [test-name]")
		}
		cmd.BaselineAction = rest[0]
		if cmd.BaselineAction != BaselineCreate && cmd.BaselineAction != BaselineList && cmd.BaselineAction != BaselineDelete {
			return Command{}, fmt.Errorf("unknown baseline action '%s'", cmd.BaselineAction)
		}
		rest = rest[1:]
	default:
		return Command{}, ErrNoSubcommand
	}

	var positionals []string

	i := 0
	for i < len(rest) {
		arg := rest[i]

		if arg == "--" {
			// Everything after the separator is the run command.
			positionals = append(positionals, rest[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")
			switch flagName {
			case "name":
				value, next, err := flagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.Name, i = value, next
			case "config":
				value, next, err := flagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.ConfigPath, i = value, next
			case "history":
				value, next, err := flagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.HistoryPath, i = value, next
			case "baselines-dir":
				value, next, err := flagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.BaselinesDir, i = value, next
			case "fail-on":
				value, next, err := flagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.FailOn, i = value, next
			case "addr":
				value, next, err := flagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.Addr, i = value, next
			case "duration-threshold":
				value, next, err := floatFlagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.DurationTh, i = value, next
			case "memory-threshold":
				value, next, err := floatFlagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.MemoryTh, i = value, next
			case "cpu-threshold":
				value, next, err := floatFlagValue(rest, i)
				if err != nil {
					return Command{}, err
				}
				cmd.CPUTh, i = value, next
			case "save":
				cmd.Save = true
			case "ci":
				cmd.CIMode = true
			case "json":
				cmd.JSONOutput = true
			default:
				return Command{}, fmt.Errorf("unknown flag '--%s'", flagName)
			}
			i++
			continue
		}

		if cmd.Subcommand == SubcommandRun {
			// First non-flag starts the command; the rest belongs to it.
			positionals = append(positionals, rest[i:]...)
			break
		}

		positionals = append(positionals, arg)
		i++
	}

	return finish(cmd, positionals)
}

// flagValue returns the value following the flag at index i.
func flagValue(args []string, i int) (string, int, error) {
	if i+1 >= len(args) {
		return "", i, fmt.Errorf("%w: %s", ErrMissingFlagValue, args[i])
	}
	return args[i+1], i + 1, nil
}

func floatFlagValue(args []string, i int) (float64, int, error) {
	value, next, err := flagValue(args, i)
	if err != nil {
		return 0, i, err
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, i, fmt.Errorf("invalid value for %s: '%s' is not a number", args[i], value)
	}
	return f, next, nil
}

// finish assigns positionals per subcommand and checks required arguments.
func finish(cmd Command, positionals []string) (Command, error) {
	switch cmd.Subcommand {
	case SubcommandFingerprint:
		if len(positionals) == 0 {
			return Command{}, ErrMissingFingerprintInput
		}
		cmd.PolicyID = positionals[0]
		if len(positionals) > 1 {
			cmd.AssetName = positionals[1]
		}

	case SubcommandRun:
		if len(positionals) == 0 {
			return Command{}, ErrNoCommand
		}
		cmd.Target = positionals[0]
		cmd.Args = positionals[1:]

	case SubcommandBaseline:
		if cmd.BaselineAction != BaselineList {
			if len(positionals) == 0 {
				return Command{}, ErrMissingTestName
			}
			cmd.TestName = positionals[0]
		}

	case SubcommandTrends, SubcommandCheck:
		if len(positionals) == 0 {
			return Command{}, ErrMissingTestName
		}
		cmd.TestName = positionals[0]

	case SubcommandServe:
		// No positionals.
	}

	return cmd, nil
}
