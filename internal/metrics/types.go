// Package metrics provides performance sample capture and persistence.
// A Sample is an immutable snapshot of one monitored operation: timing,
// memory, CPU and caller-defined custom metrics. Samples are consumed by the
// baseline and regression packages and serialize to a fixed JSON shape.
package metrics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sample captures the performance of a single monitored operation.
// Field names in JSON are stable; external tooling parses them.
type Sample struct {
	TestName        string    `json:"test_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`

	// Memory metrics in bytes. MemoryDelta is end minus start and may be
	// negative when memory was freed during the operation.
	MemoryStart int64 `json:"memory_start"`
	MemoryPeak  int64 `json:"memory_peak"`
	MemoryEnd   int64 `json:"memory_end"`
	MemoryDelta int64 `json:"memory_delta"`

	// CPU metrics.
	CPUPercent    float64 `json:"cpu_percent"`
	CPUTimeUser   float64 `json:"cpu_time_user"`
	CPUTimeSystem float64 `json:"cpu_time_system"`

	// I/O metrics in bytes.
	DiskIORead    int64 `json:"disk_io_read"`
	DiskIOWrite   int64 `json:"disk_io_write"`
	NetworkIOSent int64 `json:"network_io_sent"`
	NetworkIORecv int64 `json:"network_io_recv"`

	// CustomMetrics is an open map of caller-defined scalars.
	CustomMetrics map[string]Value `json:"custom_metrics"`
}

// ValueKind discriminates the scalar types a custom metric may hold.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindString
	KindBool
)

// Value is a tagged scalar for custom metrics. Restricting custom metrics to
// int/float/string/bool keeps their serialization well-defined instead of
// accepting an arbitrary-type bag.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
}

// IntValue wraps an integer custom metric.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue wraps a floating-point custom metric.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue wraps a string custom metric.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// BoolValue wraps a boolean custom metric.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the scalar type held by the value.
func (v Value) Kind() ValueKind { return v.kind }

// Int returns the integer payload (zero if the kind differs).
func (v Value) Int() int64 { return v.i }

// Float returns the float payload, coercing an integer payload.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Str returns the string payload (empty if the kind differs).
func (v Value) Str() string { return v.s }

// Bool returns the boolean payload (false if the kind differs).
func (v Value) Bool() bool { return v.b }

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// MarshalJSON emits the raw scalar, not the tagged wrapper.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON reads a raw scalar back into a tagged value. Numbers without
// a fraction or exponent become integers; everything else with digits
// becomes a float.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return fmt.Errorf("empty custom metric value")
	}

	switch {
	case trimmed == "true" || trimmed == "false":
		*v = BoolValue(trimmed == "true")
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	default:
		if !strings.ContainsAny(trimmed, ".eE") {
			if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
				*v = IntValue(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("custom metric value %q is not a scalar", trimmed)
		}
		*v = FloatValue(f)
		return nil
	}
}
