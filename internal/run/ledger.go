package run

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// StepStatus is the current status of one step within a run.
type StepStatus string

const (
	StepQueued     StepStatus = "QUEUED"
	StepRunning    StepStatus = "RUNNING"
	StepValidating StepStatus = "VALIDATING"
	StepSucceeded  StepStatus = "SUCCEEDED"
	StepFailed     StepStatus = "FAILED"
	StepBlocked    StepStatus = "BLOCKED"
)

func (s StepStatus) valid() bool {
	switch s {
	case StepQueued, StepRunning, StepValidating, StepSucceeded, StepFailed, StepBlocked:
		return true
	}
	return false
}

// Record is the single current status record of one step. A transition
// atomically replaces the previous record, so "current status of step i"
// is always one lookup.
type Record struct {
	Step      int        `json:"step"` // 1-based
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Ledger keeps one status record and one output record per step inside a
// run directory.
type Ledger struct {
	dir string
}

// NewLedger returns the ledger of a run directory.
func NewLedger(runDir string) *Ledger {
	return &Ledger{dir: runDir}
}

func (l *Ledger) recordPath(step int) string {
	return filepath.Join(l.dir, fmt.Sprintf("step-%02d.json", step))
}

// OutputPath returns the output record of a step.
func (l *Ledger) OutputPath(step int) string {
	return filepath.Join(l.dir, fmt.Sprintf("step-%02d.out", step))
}

// Init writes a QUEUED record for every named step, replacing whatever
// records were there before.
func (l *Ledger) Init(names []string, now time.Time) error {
	for i, name := range names {
		rec := Record{Step: i + 1, Name: name, Status: StepQueued, UpdatedAt: now}
		if err := l.Put(rec); err != nil {
			return err
		}
	}
	return nil
}

// Get reads the current record of one step.
func (l *Ledger) Get(step int) (Record, error) {
	data, err := os.ReadFile(l.recordPath(step))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: no record for step %d", ErrCorrupt, step)
		}
		return Record{}, fmt.Errorf("%w: reading step %d record: %v", ErrStorage, step, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: step %d record: %v", ErrCorrupt, step, err)
	}
	if !rec.Status.valid() {
		return Record{}, fmt.Errorf("%w: step %d has unknown status %q", ErrCorrupt, step, rec.Status)
	}
	return rec, nil
}

// Read returns the current record of every step, ordered by index. The
// engine reads this fresh at each scheduling decision rather than trusting
// an in-memory copy.
func (l *Ledger) Read(total int) ([]Record, error) {
	recs := make([]Record, 0, total)
	for i := 1; i <= total; i++ {
		rec, err := l.Get(i)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Records returns every step record present in the run directory, ordered
// by index, without assuming how many steps the run had. Status and
// history reporting read old runs through this even after the configured
// step list has changed.
func (l *Ledger) Records() ([]Record, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "step-*.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: listing step records: %v", ErrStorage, err)
	}
	recs := make([]Record, 0, len(matches))
	for _, m := range matches {
		var step int
		if _, err := fmt.Sscanf(filepath.Base(m), "step-%d.json", &step); err != nil {
			continue
		}
		rec, err := l.Get(step)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Step < recs[j].Step })
	return recs, nil
}

// Put atomically replaces a step's status record.
func (l *Ledger) Put(rec Record) error {
	if !rec.Status.valid() {
		return fmt.Errorf("%w: refusing to write unknown status %q for step %d", ErrCorrupt, rec.Status, rec.Step)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling step %d record: %w", rec.Step, err)
	}
	return atomicWrite(l.recordPath(rec.Step), append(data, '\n'))
}

// Mark transitions a step to status, stamping the transition time.
func (l *Ledger) Mark(step int, name string, status StepStatus, now time.Time) error {
	return l.Put(Record{Step: step, Name: name, Status: status, UpdatedAt: now})
}

// TruncateOutput empties a step's output record for a fresh first attempt.
func (l *Ledger) TruncateOutput(step int) error {
	if err := os.WriteFile(l.OutputPath(step), nil, 0o644); err != nil {
		return fmt.Errorf("%w: truncating step %d output: %v", ErrStorage, step, err)
	}
	return nil
}

// AppendOutput appends captured command output to a step's output record.
// Output is recorded verbatim whether the command succeeded or failed.
func (l *Ledger) AppendOutput(step int, data []byte) error {
	f, err := os.OpenFile(l.OutputPath(step), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening step %d output: %v", ErrStorage, step, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: appending step %d output: %v", ErrStorage, step, err)
	}
	return nil
}

// NormalizeOutput rewrites a step's output record with Unix line endings.
// Applied after an attempt finalizes, whatever the outcome.
func (l *Ledger) NormalizeOutput(step int) error {
	path := l.OutputPath(step)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: reading step %d output: %v", ErrStorage, step, err)
	}
	clean := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if bytes.Equal(clean, data) {
		return nil
	}
	return atomicWrite(path, clean)
}
