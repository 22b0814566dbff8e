package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Environment variables exposed to the child process.
const (
	EnvRunName = "PERFGUARD_RUN_NAME"
	EnvRunID   = "PERFGUARD_RUN_ID"
)

// Inject returns a new environ slice with the run identity variables added.
// Existing variables with the same names are replaced; everything else is
// preserved.
func Inject(environ []string, name, runID string) []string {
	result := make([]string, 0, len(environ)+2)
	for _, env := range environ {
		if strings.HasPrefix(env, EnvRunName+"=") || strings.HasPrefix(env, EnvRunID+"=") {
			continue
		}
		result = append(result, env)
	}

	result = append(result, EnvRunName+"="+name)
	result = append(result, EnvRunID+"="+runID)
	return result
}

// ComputeRunID derives a run identifier from the run name, the full command
// and the start time. Null byte separators keep the encoding unambiguous.
func ComputeRunID(name string, command []string, start time.Time) string {
	parts := make([]string, 0, len(command)+2)
	parts = append(parts, name)
	parts = append(parts, command...)
	parts = append(parts, strconv.FormatInt(start.UnixNano(), 10))

	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "sha256:" + hex.EncodeToString(hash[:])
}
