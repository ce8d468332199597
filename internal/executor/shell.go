package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ShellRunner executes commands with `sh -c` so step commands may use
// pipes, redirection, and environment expansion.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, command, dir string) (*Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	res := &Result{
		Output:   buf.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, fmt.Errorf("running %q: %w", command, err)
	}

	return res, nil
}

var _ Runner = ShellRunner{}
