package run

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLog appends timestamped lines to a run's run.log. It is the durable
// record of the run that subscribers receive at termination.
type RunLog struct {
	file *os.File
	path string
}

// OpenRunLog creates or reuses the run.log inside a run directory.
func OpenRunLog(runDir string) (*RunLog, error) {
	path := filepath.Join(runDir, "run.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening run log: %v", ErrStorage, err)
	}
	return &RunLog{file: f, path: path}, nil
}

// Path returns the log file location.
func (l *RunLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Printf writes a single timestamped line.
func (l *RunLog) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
}

// Close releases the file handle.
func (l *RunLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
