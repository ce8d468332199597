// Package run persists everything a run leaves on disk: the run state
// record, the per-step status ledger with captured output, the run
// directory layout, and the append-only run log.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

func (s Status) valid() bool {
	switch s {
	case StatusNew, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether a run in this status has ended.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

var (
	// ErrNotFound is returned when no run state record exists yet.
	ErrNotFound = errors.New("run state not found")

	// ErrCorrupt marks durable state that fails its own validation. The
	// engine aborts on it rather than guess and risk double execution.
	ErrCorrupt = errors.New("run state corrupt")

	// ErrStorage marks an I/O failure reading or writing durable state.
	ErrStorage = errors.New("storage failure")
)

// State is the durable resume point of a run: which run, its status, and
// where the engine stands in the step sequence.
type State struct {
	RunID       int       `json:"run_id"` // 0 = no run yet; wraps to 1 past the rotation count
	Status      Status    `json:"status"`
	CurrentStep int       `json:"current_step"` // 1-based
	StepName    string    `json:"step_name,omitempty"`
	Attempt     int       `json:"attempt"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (st State) check() error {
	if !st.Status.valid() {
		return fmt.Errorf("unknown status %q", st.Status)
	}
	if st.RunID < 0 {
		return fmt.Errorf("negative run id %d", st.RunID)
	}
	if st.CurrentStep < 0 {
		return fmt.Errorf("negative current step %d", st.CurrentStep)
	}
	if st.Attempt < 0 {
		return fmt.Errorf("negative attempt %d", st.Attempt)
	}
	return nil
}

// Store reads and writes the single run state record of a working
// directory.
type Store struct {
	path string
}

// NewStore returns a store for the state record inside workDir.
func NewStore(workDir string) *Store {
	return &Store{path: filepath.Join(workDir, "run-state.json")}
}

// Path returns the location of the state record.
func (s *Store) Path() string { return s.path }

// Load reads the persisted state. A missing record returns ErrNotFound; a
// record that fails its own validation returns ErrCorrupt.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("%w: reading %s: %v", ErrStorage, s.path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if err := st.check(); err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return st, nil
}

// Save atomically replaces the state record. Every transition is flushed
// through here immediately, never batched.
func (s *Store) Save(st State) error {
	if err := st.check(); err != nil {
		return fmt.Errorf("%w: refusing to save: %v", ErrCorrupt, err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return atomicWrite(s.path, append(data, '\n'))
}

// atomicWrite replaces the contents of path via a sibling temp file and
// rename, so a crash mid-write never leaves a half-written record.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", ErrStorage, path, err)
	}
	return nil
}
