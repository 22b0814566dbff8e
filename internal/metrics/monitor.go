package metrics

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrNotRunning is returned by Stop and AddCustomMetric when no capture is
// in progress.
var ErrNotRunning = errors.New("monitoring not active")

// MonitorConfig controls what the monitor samples and how often.
type MonitorConfig struct {
	SampleInterval time.Duration
	TrackMemory    bool
	TrackCPU       bool
	TrackIO        bool
}

// DefaultMonitorConfig returns the standard sampling configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SampleInterval: 100 * time.Millisecond,
		TrackMemory:    true,
		TrackCPU:       true,
		TrackIO:        true,
	}
}

// Monitor captures performance samples for named operations in the current
// process. Between Start and Stop a background goroutine samples RSS and CPU
// usage; Stop folds the observations into an immutable Sample.
//
// Monitor is safe for concurrent metric additions, but a single capture is
// in progress at a time: calling Start while a capture is running stops and
// discards the in-flight capture before starting fresh.
type Monitor struct {
	cfg  MonitorConfig
	proc *process.Process

	mu            sync.Mutex
	running       bool
	testName      string
	startTime     time.Time
	memorySamples []int64
	cpuSamples    []float64
	custom        map[string]Value

	baselineMemory   int64
	baselineCPUTimes *cpu.TimesStat
	baselineIO       *process.IOCountersStat

	stopCh chan struct{}
	doneCh chan struct{}

	history []Sample
}

// NewMonitor creates a monitor bound to the current process.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultMonitorConfig().SampleInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{cfg: cfg, proc: proc}, nil
}

// Start begins capturing metrics for the named operation.
// An in-flight capture is stopped and discarded first.
func (m *Monitor) Start(testName string) {
	m.mu.Lock()
	if m.running {
		m.stopLocked()
	}

	m.testName = testName
	m.startTime = time.Now().UTC()
	m.memorySamples = nil
	m.cpuSamples = nil
	m.custom = make(map[string]Value)
	m.running = true

	m.baselineMemory = m.currentRSS()
	if times, err := m.proc.Times(); err == nil {
		m.baselineCPUTimes = times
	} else {
		m.baselineCPUTimes = nil
	}
	m.baselineIO = nil
	if m.cfg.TrackIO {
		if counters, err := m.proc.IOCounters(); err == nil {
			m.baselineIO = counters
		}
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.sampleLoop(m.stopCh, m.doneCh)
}

// Stop ends the capture and returns the collected sample.
// Returns ErrNotRunning when no capture is in progress.
func (m *Monitor) Stop() (Sample, error) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return Sample{}, ErrNotRunning
	}
	m.stopLocked()

	endTime := time.Now().UTC()
	duration := endTime.Sub(m.startTime).Seconds()

	currentMemory := m.currentRSS()
	memoryPeak := currentMemory
	for _, s := range m.memorySamples {
		if s > memoryPeak {
			memoryPeak = s
		}
	}

	cpuAvg := 0.0
	if len(m.cpuSamples) > 0 {
		total := 0.0
		for _, s := range m.cpuSamples {
			total += s
		}
		cpuAvg = total / float64(len(m.cpuSamples))
	}

	var cpuUser, cpuSystem float64
	if m.baselineCPUTimes != nil {
		if times, err := m.proc.Times(); err == nil {
			cpuUser = times.User - m.baselineCPUTimes.User
			cpuSystem = times.System - m.baselineCPUTimes.System
		}
	}

	var diskRead, diskWrite int64
	if m.baselineIO != nil {
		if counters, err := m.proc.IOCounters(); err == nil {
			diskRead = int64(counters.ReadBytes - m.baselineIO.ReadBytes)
			diskWrite = int64(counters.WriteBytes - m.baselineIO.WriteBytes)
		}
	}

	custom := make(map[string]Value, len(m.custom))
	for k, v := range m.custom {
		custom[k] = v
	}

	sample := Sample{
		TestName:        m.testName,
		StartTime:       m.startTime,
		EndTime:         endTime,
		DurationSeconds: duration,
		MemoryStart:     m.baselineMemory,
		MemoryPeak:      memoryPeak,
		MemoryEnd:       currentMemory,
		MemoryDelta:     currentMemory - m.baselineMemory,
		CPUPercent:      cpuAvg,
		CPUTimeUser:     cpuUser,
		CPUTimeSystem:   cpuSystem,
		DiskIORead:      diskRead,
		DiskIOWrite:     diskWrite,
		CustomMetrics:   custom,
	}

	m.history = append(m.history, sample)
	m.mu.Unlock()

	return sample, nil
}

// AddCustomMetric records a caller-defined metric on the current capture.
// Duplicate names overwrite (last write wins).
func (m *Monitor) AddCustomMetric(name string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotRunning
	}
	m.custom[name] = v
	return nil
}

// History returns a copy of all samples collected so far.
func (m *Monitor) History() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.history))
	copy(out, m.history)
	return out
}

// Clear drops the collected sample history.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// stopLocked halts the sampling goroutine. Caller holds m.mu.
func (m *Monitor) stopLocked() {
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh

	// Release the lock while waiting so the loop can finish a sample.
	m.mu.Unlock()
	<-done
	m.mu.Lock()
}

// sampleLoop samples memory and CPU until stopped. Individual sampling
// failures are skipped; the loop keeps going.
func (m *Monitor) sampleLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.cfg.TrackMemory {
				if info, err := m.proc.MemoryInfo(); err == nil {
					m.memorySamples = append(m.memorySamples, int64(info.RSS))
				}
			}
			if m.cfg.TrackCPU {
				if pct, err := m.proc.CPUPercent(); err == nil {
					m.cpuSamples = append(m.cpuSamples, pct)
				}
			}
			m.mu.Unlock()
		}
	}
}

// currentRSS reads the resident set size, or 0 when unavailable.
func (m *Monitor) currentRSS() int64 {
	info, err := m.proc.MemoryInfo()
	if err != nil {
		return 0
	}
	return int64(info.RSS)
}
