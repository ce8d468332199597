// Package executor runs step commands through the system shell.
package executor

import (
	"context"
	"time"
)

// Runner executes one command in a working directory and reports how it
// exited.
type Runner interface {
	Run(ctx context.Context, command, dir string) (*Result, error)
}

// Result holds the outcome of one command execution. A nonzero exit code
// is a result, not an error; an error means the command could not be run
// at all.
type Result struct {
	ExitCode int
	Output   []byte // stdout and stderr interleaved, as a terminal would show them
	Duration time.Duration
}

// Succeeded reports whether the command exited zero.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}
