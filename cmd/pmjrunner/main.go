package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/genebarker/pmjrunner/internal/cli"
	"github.com/genebarker/pmjrunner/internal/config"
	"github.com/genebarker/pmjrunner/internal/engine"
	"github.com/genebarker/pmjrunner/internal/run"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes to stable exit codes so schedulers can tell
// a failed run from a misconfiguration or a refused resume.
func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid):
		return 2
	case errors.Is(err, run.ErrCorrupt):
		return 3
	case errors.Is(err, engine.ErrPrecondition):
		return 4
	case errors.Is(err, run.ErrStorage):
		return 5
	default:
		return 1
	}
}
