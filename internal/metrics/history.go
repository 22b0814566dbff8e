package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// HistoryStore persists sample history as a single JSON document.
type HistoryStore struct {
	Path string
}

// historyFile is the on-disk shape of a saved history.
type historyFile struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   []Sample  `json:"metrics"`
}

// NewHistoryStore creates a store backed by the given file path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{Path: path}
}

// DefaultHistoryPath returns the default history location
// (.perfguard/history.json under the working directory).
func DefaultHistoryPath() string {
	return filepath.Join(".perfguard", "history.json")
}

// Save writes the samples, replacing any existing history.
func (s *HistoryStore) Save(samples []Sample) error {
	dir := filepath.Dir(s.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(historyFile{
		Timestamp: time.Now().UTC(),
		Metrics:   samples,
	}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0644)
}

// Load reads the saved samples. A missing file is an empty history, not an
// error.
func (s *HistoryStore) Load() ([]Sample, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f historyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	return f.Metrics, nil
}

// Append loads the history, adds the sample, and saves it back.
func (s *HistoryStore) Append(sample Sample) error {
	samples, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(append(samples, sample))
}

// Prune removes samples whose start time is older than the given duration.
// Returns the number of samples removed.
func (s *HistoryStore) Prune(olderThan time.Duration) (int, error) {
	samples, err := s.Load()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	kept := samples[:0]
	for _, sample := range samples {
		if !sample.StartTime.Before(cutoff) {
			kept = append(kept, sample)
		}
	}

	removed := len(samples) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	return removed, s.Save(kept)
}
