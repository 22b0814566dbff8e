// Package runner executes a command as a child process while sampling its
// resource usage, producing the same Sample shape the in-process monitor
// emits. It backs the `perfguard run` command.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"perfguard/internal/metrics"
)

// ErrNoCommand is returned when Options carries an empty command.
var ErrNoCommand = errors.New("no command to run")

// Exit codes for launch failures, matching shell conventions.
const (
	ExitNotFound         = 127
	ExitPermissionDenied = 126
	ExitFailure          = 1
)

// Options configures one monitored run.
type Options struct {
	// Name labels the resulting sample. Defaults to the command itself.
	Name string

	// Command is the target command followed by its arguments.
	Command []string

	// Environ is the base environment; run identity variables are added.
	Environ []string

	// Dir is the working directory for the child. Empty means inherit.
	Dir string

	Stdout io.Writer
	Stderr io.Writer

	// Monitor controls sampling; zero values take the monitor defaults.
	Monitor metrics.MonitorConfig
}

// Result is the outcome of a monitored run.
type Result struct {
	Sample   metrics.Sample
	ExitCode int
	RunID    string
}

// Run launches the command and samples it until exit.
//
// Launch failures are reported via the exit code the shell would use:
// 127 when the command is not found, 126 when permission is denied. The
// child's own exit code passes through unchanged.
func Run(ctx context.Context, opts Options) (Result, error) {
	if len(opts.Command) == 0 {
		return Result{ExitCode: ExitFailure}, ErrNoCommand
	}

	name := opts.Name
	if name == "" {
		name = opts.Command[0]
	}

	target := opts.Command[0]
	args := opts.Command[1:]

	if _, err := exec.LookPath(target); err != nil {
		return Result{ExitCode: launchExitCode(err)}, err
	}

	startTime := time.Now().UTC()
	runID := ComputeRunID(name, opts.Command, startTime)

	cmd := exec.CommandContext(ctx, target, args...)
	cmd.Env = Inject(opts.Environ, name, runID)
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: launchExitCode(err)}, err
	}

	interval := opts.Monitor.SampleInterval
	if interval <= 0 {
		interval = metrics.DefaultMonitorConfig().SampleInterval
	}

	obs := newObserver(cmd.Process.Pid, opts.Monitor)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.observe(interval, stop)
	}()

	waitErr := cmd.Wait()
	close(stop)
	wg.Wait()

	endTime := time.Now().UTC()

	sample := obs.sample(name, startTime, endTime)
	sample.CustomMetrics["binary_sha256"] = metrics.StringValue(HashExecutable(target))
	sample.CustomMetrics["exit_code"] = metrics.IntValue(int64(cmd.ProcessState.ExitCode()))

	result := Result{
		Sample:   sample,
		ExitCode: cmd.ProcessState.ExitCode(),
		RunID:    runID,
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// Non-zero exit is a result, not a runner failure.
		return result, nil
	}
	return result, waitErr
}

// launchExitCode maps a launch error to its conventional shell exit code.
func launchExitCode(err error) int {
	switch {
	case isNotFound(err):
		return ExitNotFound
	case isPermissionDenied(err):
		return ExitPermissionDenied
	default:
		return ExitFailure
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

func isPermissionDenied(err error) bool {
	var pathErr *exec.Error
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return errors.Is(err, os.ErrPermission)
}

// observer samples one child process until stopped.
type observer struct {
	pid int32
	cfg metrics.MonitorConfig

	mu            sync.Mutex
	memorySamples []int64
	cpuSamples    []float64
	lastCPUUser   float64
	lastCPUSystem float64
	lastIORead    int64
	lastIOWrite   int64
}

func newObserver(pid int, cfg metrics.MonitorConfig) *observer {
	return &observer{pid: int32(pid), cfg: cfg}
}

// observe polls the child at the given interval until stop closes.
// The child can exit at any moment, so every probe tolerates failure.
func (o *observer) observe(interval time.Duration, stop <-chan struct{}) {
	proc, err := process.NewProcess(o.pid)
	if err != nil {
		return
	}

	o.probe(proc) // one sample immediately, short children may beat the ticker

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			o.probe(proc)
			return
		case <-ticker.C:
			o.probe(proc)
		}
	}
}

func (o *observer) probe(proc *process.Process) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg.TrackMemory {
		if info, err := proc.MemoryInfo(); err == nil {
			o.memorySamples = append(o.memorySamples, int64(info.RSS))
		}
	}
	if o.cfg.TrackCPU {
		if pct, err := proc.CPUPercent(); err == nil {
			o.cpuSamples = append(o.cpuSamples, pct)
		}
		if times, err := proc.Times(); err == nil {
			o.lastCPUUser = times.User
			o.lastCPUSystem = times.System
		}
	}
	if o.cfg.TrackIO {
		if counters, err := proc.IOCounters(); err == nil {
			o.lastIORead = int64(counters.ReadBytes)
			o.lastIOWrite = int64(counters.WriteBytes)
		}
	}
}

// sample folds the observations into a Sample.
func (o *observer) sample(name string, start, end time.Time) metrics.Sample {
	o.mu.Lock()
	defer o.mu.Unlock()

	var memoryStart, memoryPeak, memoryEnd int64
	if len(o.memorySamples) > 0 {
		memoryStart = o.memorySamples[0]
		memoryEnd = o.memorySamples[len(o.memorySamples)-1]
		for _, s := range o.memorySamples {
			if s > memoryPeak {
				memoryPeak = s
			}
		}
	}

	cpuAvg := 0.0
	if len(o.cpuSamples) > 0 {
		total := 0.0
		for _, s := range o.cpuSamples {
			total += s
		}
		cpuAvg = total / float64(len(o.cpuSamples))
	}

	return metrics.Sample{
		TestName:        name,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end.Sub(start).Seconds(),
		MemoryStart:     memoryStart,
		MemoryPeak:      memoryPeak,
		MemoryEnd:       memoryEnd,
		MemoryDelta:     memoryEnd - memoryStart,
		CPUPercent:      cpuAvg,
		CPUTimeUser:     o.lastCPUUser,
		CPUTimeSystem:   o.lastCPUSystem,
		DiskIORead:      o.lastIORead,
		DiskIOWrite:     o.lastIOWrite,
		CustomMetrics:   make(map[string]metrics.Value),
	}
}
