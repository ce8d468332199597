package run

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Workspace is the on-disk layout of one working directory: the state
// record and config copy at the root, one subdirectory per run under
// history/.
type Workspace struct {
	root string
}

// NewWorkspace returns the layout rooted at workDir.
func NewWorkspace(workDir string) *Workspace {
	return &Workspace{root: workDir}
}

// Root returns the working directory.
func (w *Workspace) Root() string { return w.root }

// ConfigCopyPath is where a run records the config that started it.
func (w *Workspace) ConfigCopyPath() string {
	return filepath.Join(w.root, "run-config.yaml")
}

// HistoryDir holds one subdirectory per run.
func (w *Workspace) HistoryDir() string {
	return filepath.Join(w.root, "history")
}

// RunDir returns the directory of a run, named by zero-padded run number.
func (w *Workspace) RunDir(runID int) string {
	return filepath.Join(w.HistoryDir(), fmt.Sprintf("%06d", runID))
}

// NextRunID allocates the run number after current, wrapping to 1 once
// rotation is exceeded.
func NextRunID(current, rotation int) int {
	next := current + 1
	if next > rotation {
		next = 1
	}
	return next
}

// InitRunDir clears and recreates a run's directory. A rotated run number
// recycles its old slot, so any prior contents are removed first.
func (w *Workspace) InitRunDir(runID int) (string, error) {
	dir := w.RunDir(runID)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("%w: clearing %s: %v", ErrStorage, dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrStorage, dir, err)
	}
	return dir, nil
}

// Runs lists the run numbers that have a history directory, ascending.
// A working directory with no history yet returns an empty list.
func (w *Workspace) Runs() ([]int, error) {
	entries, err := os.ReadDir(w.HistoryDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading history: %v", ErrStorage, err)
	}
	var ids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
