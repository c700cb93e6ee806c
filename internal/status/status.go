// Package status records the outcome of the last run as a small JSON marker.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the marker file name inside the report output directory.
const FileName = "last_run_status.json"

// Run outcomes.
const (
	Success = "success"
	Failure = "failure"
)

// Status is the content of the marker file.
type Status struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
}

// Write stores st as dir/last_run_status.json, creating dir if needed.
func Write(dir string, st Status) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Read loads the marker from dir.
func Read(dir string) (*Status, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}
	return &st, nil
}
