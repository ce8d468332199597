package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/genebarker/pmjrunner/internal/config"
	"github.com/genebarker/pmjrunner/internal/engine"
	"github.com/genebarker/pmjrunner/internal/run"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: run_name is required", config.ErrInvalid), 2},
		{fmt.Errorf("%w: step 2 record: bad json", run.ErrCorrupt), 3},
		{fmt.Errorf("%w: no run has been started yet", engine.ErrPrecondition), 4},
		{fmt.Errorf("%w: writing state: disk full", run.ErrStorage), 5},
		{fmt.Errorf("%w: 1 of 3 steps succeeded", engine.ErrRunFailed), 1},
		{errors.New("anything else"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
