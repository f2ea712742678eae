// Package monitor maintains an operator-readable status file summarizing the
// most recent pipeline runs.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// RunStatus is one run's outcome as written to the status file.
type RunStatus struct {
	Trigger      string    `json:"trigger"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Failed       bool      `json:"failed"`
	ArtifactPath string    `json:"artifactPath,omitempty"`
	HasTelemetry bool      `json:"hasTelemetry"`
	DistanceKm   float64   `json:"distanceKm,omitempty"`
	Notified     bool      `json:"notified"`
}

// status is the full status file contents.
type status struct {
	UpdatedAt time.Time   `json:"updatedAt"`
	LastRun   *RunStatus  `json:"lastRun,omitempty"`
	Recent    []RunStatus `json:"recent,omitempty"`
}

// maxRecent bounds the run list kept in the status file.
const maxRecent = 10

// Service tracks run outcomes and rewrites the status file after each run.
type Service struct {
	path string
	log  *slog.Logger

	mu     sync.RWMutex
	recent []RunStatus
}

// NewService creates a monitor writing to the given status file path.
func NewService(path string, log *slog.Logger) *Service {
	return &Service{
		path: path,
		log:  log,
	}
}

// RecordRun stores a run outcome and rewrites the status file.
// Write failures are logged, never propagated.
func (s *Service) RecordRun(rs RunStatus) {
	s.mu.Lock()
	s.recent = append([]RunStatus{rs}, s.recent...)
	if len(s.recent) > maxRecent {
		s.recent = s.recent[:maxRecent]
	}
	snapshot := status{
		UpdatedAt: time.Now().UTC(),
		LastRun:   &s.recent[0],
		Recent:    append([]RunStatus(nil), s.recent...),
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.log.Error("Error encoding status file", "error", err)
		return
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Error("Error writing status file", "path", s.path, "error", err)
	}
}

// LastRun returns the most recent run outcome, if any.
func (s *Service) LastRun() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.recent) == 0 {
		return RunStatus{}, false
	}
	return s.recent[0], true
}
