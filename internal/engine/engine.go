// Package engine implements the run control loop: it decides which step
// runs next, whether it may run now, how many times to retry it, and when
// the run terminates, persisting its place after every decision so an
// interrupted run can resume exactly where it stopped.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/genebarker/pmjrunner/internal/config"
	"github.com/genebarker/pmjrunner/internal/executor"
	plog "github.com/genebarker/pmjrunner/internal/log"
	"github.com/genebarker/pmjrunner/internal/notify"
	"github.com/genebarker/pmjrunner/internal/run"
	"github.com/genebarker/pmjrunner/internal/types"
)

// ErrPrecondition marks a start, restart, or redo attempted against a run
// whose state forbids it without the explicit force override.
var ErrPrecondition = errors.New("run state precondition violated")

// ErrRunFailed reports that the run ended FAILED. Step failures are
// handled policy inside the loop, so this is the only error a completed
// run returns.
var ErrRunFailed = errors.New("run failed")

// Engine orchestrates one run of the configured steps.
type Engine struct {
	Config    *config.Config
	Store     *run.Store
	Workspace *run.Workspace
	Runner    executor.Runner
	Notifier  notify.Notifier
	Display   *Display

	// Now and Sleep may be injected by tests; nil means the real clock
	// and a context-aware timer sleep.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if e.Sleep != nil {
		e.Sleep(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (e *Engine) stamp(st run.State) run.State {
	st.UpdatedAt = e.now()
	return st
}

// Start begins a brand-new run: it allocates the next run number, recycles
// that number's history directory, queues every step, and walks the
// sequence from step 1.
func (e *Engine) Start(ctx context.Context, force bool) error {
	st, err := e.Store.Load()
	if err != nil {
		if !errors.Is(err, run.ErrNotFound) {
			return err
		}
		st = run.State{RunID: 0, Status: run.StatusNew}
	}
	if st.Status == run.StatusRunning && !force {
		return fmt.Errorf("%w: run %d is marked RUNNING; another engine may be active (use --force to override)", ErrPrecondition, st.RunID)
	}

	next := run.NextRunID(st.RunID, e.Config.Rotation)
	dir, err := e.Workspace.InitRunDir(next)
	if err != nil {
		return err
	}
	if err := e.Config.WriteCopy(e.Workspace.ConfigCopyPath()); err != nil {
		return fmt.Errorf("%w: recording config copy: %v", run.ErrStorage, err)
	}

	ledger := run.NewLedger(dir)
	if err := ledger.Init(e.stepNames(), e.now()); err != nil {
		return err
	}

	st = run.State{
		RunID:       next,
		Status:      run.StatusRunning,
		CurrentStep: 1,
		StepName:    e.Config.Steps[0].Name,
		Attempt:     0,
	}
	if err := e.Store.Save(e.stamp(st)); err != nil {
		return err
	}

	rlog, err := run.OpenRunLog(dir)
	if err != nil {
		return err
	}
	defer rlog.Close()

	plog.Info("run started", "run", next, "name", e.Config.RunName, "steps", len(e.Config.Steps))
	rlog.Printf("run %d (%s) started with %d steps", next, e.Config.RunName, len(e.Config.Steps))
	e.Display.Header(e.Config.RunName, next)

	return e.loop(ctx, st, ledger, rlog, false)
}

// Restart resumes the existing run, keeping its ledger untouched so the
// loop's skip rule fast-forwards past completed work.
func (e *Engine) Restart(ctx context.Context, force bool) error {
	st, err := e.loadForResume(force)
	if err != nil {
		return err
	}

	dir := e.Workspace.RunDir(st.RunID)
	ledger := run.NewLedger(dir)

	st.Status = run.StatusRunning
	st.CurrentStep = 1
	st.StepName = e.Config.Steps[0].Name
	st.Attempt = 0
	if err := e.Store.Save(e.stamp(st)); err != nil {
		return err
	}

	rlog, err := run.OpenRunLog(dir)
	if err != nil {
		return err
	}
	defer rlog.Close()

	plog.Info("run restarted", "run", st.RunID, "name", e.Config.RunName)
	rlog.Printf("run %d restarted", st.RunID)
	e.Display.Header(e.Config.RunName, st.RunID)

	return e.loop(ctx, st, ledger, rlog, false)
}

// Redo re-executes one chosen step and then proceeds forward through the
// rest of the sequence. The target step is re-queued first so it runs
// again even if it previously succeeded.
func (e *Engine) Redo(ctx context.Context, step int, force bool) error {
	total := len(e.Config.Steps)
	if step < 1 || step > total {
		return fmt.Errorf("%w: step %d outside 1..%d", ErrPrecondition, step, total)
	}
	st, err := e.loadForResume(force)
	if err != nil {
		return err
	}

	dir := e.Workspace.RunDir(st.RunID)
	ledger := run.NewLedger(dir)
	name := e.Config.Steps[step-1].Name
	if err := ledger.Mark(step, name, run.StepQueued, e.now()); err != nil {
		return err
	}

	st.Status = run.StatusRunning
	st.CurrentStep = step
	st.StepName = name
	st.Attempt = 0
	if err := e.Store.Save(e.stamp(st)); err != nil {
		return err
	}

	rlog, err := run.OpenRunLog(dir)
	if err != nil {
		return err
	}
	defer rlog.Close()

	plog.Info("re-executing step", "run", st.RunID, "step", step, "name", name)
	rlog.Printf("run %d re-executing step %d (%s)", st.RunID, step, name)
	e.Display.Header(e.Config.RunName, st.RunID)

	return e.loop(ctx, st, ledger, rlog, true)
}

// loadForResume loads the state record and enforces the restart/redo
// preconditions: there must be a run, it must not have succeeded, and a
// RUNNING run needs the force override because another engine may still
// own it.
func (e *Engine) loadForResume(force bool) (run.State, error) {
	st, err := e.Store.Load()
	if err != nil {
		if errors.Is(err, run.ErrNotFound) {
			return st, fmt.Errorf("%w: no run exists in %s yet", ErrPrecondition, e.Workspace.Root())
		}
		return st, err
	}
	switch {
	case st.Status == run.StatusNew:
		return st, fmt.Errorf("%w: no run has been started yet", ErrPrecondition)
	case st.Status == run.StatusSucceeded:
		return st, fmt.Errorf("%w: run %d already succeeded; start a new run instead", ErrPrecondition, st.RunID)
	case st.Status == run.StatusRunning && !force:
		return st, fmt.Errorf("%w: run %d is marked RUNNING; another engine may be active (use --force to override)", ErrPrecondition, st.RunID)
	}
	return st, nil
}

func (e *Engine) stepNames() []string {
	names := make([]string, len(e.Config.Steps))
	for i, s := range e.Config.Steps {
		names[i] = s.Name
	}
	return names
}

// loop is the shared control loop. Each iteration re-reads the ledger from
// disk, decides skip/blocked/attempt for the current step, then applies
// the termination rules in strict priority order.
func (e *Engine) loop(ctx context.Context, st run.State, ledger *run.Ledger, rlog *run.RunLog, redo bool) error {
	total := len(e.Config.Steps)
	win, err := e.Config.Window()
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := e.Config.Steps[st.CurrentStep-1]
		recs, err := ledger.Read(total)
		if err != nil {
			return err
		}

		var outcome run.StepStatus
		switch {
		case recs[st.CurrentStep-1].Status == run.StepSucceeded:
			outcome = run.StepSucceeded
			st.StepName = step.Name
			if err := e.Store.Save(e.stamp(st)); err != nil {
				return err
			}
			plog.Debug("step already succeeded, skipping", "step", st.CurrentStep, "name", step.Name)
			rlog.Printf("step %d (%s) already succeeded, skipped", st.CurrentStep, step.Name)
			e.Display.StepSkipped(st.CurrentStep, total, step.Name)

		case !prerequisitesMet(step, recs):
			outcome = run.StepBlocked
			if err := e.block(&st, step, ledger, rlog, "prerequisites not met"); err != nil {
				return err
			}

		case step.BatchWindow && !win.Contains(e.now()):
			outcome = run.StepBlocked
			if err := e.block(&st, step, ledger, rlog, "batch window closed"); err != nil {
				return err
			}

		default:
			outcome, err = e.attempt(ctx, &st, step, ledger, rlog)
			if err != nil {
				return err
			}
		}

		// Succeeded count always comes from a fresh ledger snapshot.
		recs, err = ledger.Read(total)
		if err != nil {
			return err
		}
		succeeded := 0
		for _, r := range recs {
			if r.Status == run.StepSucceeded {
				succeeded++
			}
		}

		switch {
		case outcome == run.StepFailed && st.Attempt < step.MaxTries:
			// Retry the same step.

		case (outcome == run.StepFailed || outcome == run.StepBlocked) && step.HaltOnFailure:
			reason := fmt.Sprintf("step %d (%s) did not succeed and halts the run", st.CurrentStep, step.Name)
			return e.finish(ctx, st, ledger, rlog, run.StatusFailed, reason, succeeded, total)

		case succeeded == total && (st.CurrentStep == total || redo):
			return e.finish(ctx, st, ledger, rlog, run.StatusSucceeded, "", succeeded, total)

		case st.CurrentStep == total:
			return e.finish(ctx, st, ledger, rlog, run.StatusFailed, "", succeeded, total)

		case redo && outcome != run.StepSucceeded:
			reason := fmt.Sprintf("re-executed step %d (%s) did not succeed", st.CurrentStep, step.Name)
			return e.finish(ctx, st, ledger, rlog, run.StatusFailed, reason, succeeded, total)

		default:
			st.CurrentStep++
			st.Attempt = 0
			st.StepName = e.Config.Steps[st.CurrentStep-1].Name
			if err := e.Store.Save(e.stamp(st)); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) block(st *run.State, step types.Step, ledger *run.Ledger, rlog *run.RunLog, reason string) error {
	st.StepName = step.Name
	if err := ledger.Mark(st.CurrentStep, step.Name, run.StepBlocked, e.now()); err != nil {
		return err
	}
	if err := e.Store.Save(e.stamp(*st)); err != nil {
		return err
	}
	plog.Info("step blocked", "step", st.CurrentStep, "name", step.Name, "reason", reason)
	rlog.Printf("step %d (%s) blocked: %s", st.CurrentStep, step.Name, reason)
	e.Display.StepBlocked(st.CurrentStep, len(e.Config.Steps), step.Name, reason)
	return nil
}

// attempt executes one try of the current step: command, optional
// validation, output capture, and the resulting ledger transition.
func (e *Engine) attempt(ctx context.Context, st *run.State, step types.Step, ledger *run.Ledger, rlog *run.RunLog) (run.StepStatus, error) {
	st.Attempt++
	st.StepName = step.Name
	// The resume point is flushed before the command launches; a crash
	// mid-command loses only that command's output, never the engine's
	// place in the sequence.
	if err := e.Store.Save(e.stamp(*st)); err != nil {
		return "", err
	}
	if err := ledger.Mark(st.CurrentStep, step.Name, run.StepRunning, e.now()); err != nil {
		return "", err
	}

	if st.Attempt == 1 {
		if err := ledger.TruncateOutput(st.CurrentStep); err != nil {
			return "", err
		}
	} else {
		delay := time.Duration(e.Config.RetryDelay) * time.Second
		plog.Info("retrying step", "step", st.CurrentStep, "attempt", st.Attempt, "delay", delay)
		e.sleep(ctx, delay)
	}

	total := len(e.Config.Steps)
	rlog.Printf("step %d (%s) attempt %d/%d started", st.CurrentStep, step.Name, st.Attempt, step.MaxTries)
	e.Display.StepStart(st.CurrentStep, total, step.Name, st.Attempt, step.MaxTries)

	res, err := e.runCommand(ctx, step.Command)
	if err != nil {
		return "", err
	}
	if err := ledger.AppendOutput(st.CurrentStep, res.Output); err != nil {
		return "", err
	}

	status := run.StepFailed
	exit := res.ExitCode
	switch {
	case res.ExitCode != 0:
		rlog.Printf("step %d (%s) attempt %d/%d failed (exit %d)", st.CurrentStep, step.Name, st.Attempt, step.MaxTries, res.ExitCode)

	case step.ValidateCommand != "":
		if err := ledger.Mark(st.CurrentStep, step.Name, run.StepValidating, e.now()); err != nil {
			return "", err
		}
		rlog.Printf("step %d (%s) validating", st.CurrentStep, step.Name)
		e.Display.StepValidating(st.CurrentStep, total, step.Name)

		vres, err := e.runCommand(ctx, step.ValidateCommand)
		if err != nil {
			return "", err
		}
		if err := ledger.AppendOutput(st.CurrentStep, vres.Output); err != nil {
			return "", err
		}
		if vres.ExitCode == 0 {
			status = run.StepSucceeded
		} else {
			exit = vres.ExitCode
			rlog.Printf("step %d (%s) validation failed (exit %d)", st.CurrentStep, step.Name, vres.ExitCode)
		}

	default:
		status = run.StepSucceeded
	}

	if err := ledger.Mark(st.CurrentStep, step.Name, status, e.now()); err != nil {
		return "", err
	}
	// Line-ending cleanup applies once the record is final, whatever the
	// outcome.
	if err := ledger.NormalizeOutput(st.CurrentStep); err != nil {
		return "", err
	}

	if status == run.StepSucceeded {
		rlog.Printf("step %d (%s) succeeded", st.CurrentStep, step.Name)
		e.Display.StepDone(st.CurrentStep, total, step.Name, res.Duration)
	} else {
		e.Display.StepFailed(st.CurrentStep, total, step.Name, exit, st.Attempt, step.MaxTries)
	}
	return status, nil
}

// runCommand shells out through the Runner. A command that cannot launch
// at all is folded into a failed result so the retry policy still applies;
// only cancellation propagates as an error.
func (e *Engine) runCommand(ctx context.Context, command string) (*executor.Result, error) {
	res, err := e.Runner.Run(ctx, command, e.Workspace.Root())
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		plog.Warn("command could not be launched", "command", command, "err", err)
		return &executor.Result{
			ExitCode: -1,
			Output:   []byte("launch error: " + err.Error() + "\n"),
		}, nil
	}
	return res, nil
}

// finish performs the terminal transition: persist state, write the
// summary log line, notify subscribers exactly once.
func (e *Engine) finish(ctx context.Context, st run.State, ledger *run.Ledger, rlog *run.RunLog, status run.Status, reason string, succeeded, total int) error {
	st.Status = status
	if err := e.Store.Save(e.stamp(st)); err != nil {
		return err
	}

	if status == run.StatusSucceeded {
		rlog.Printf("run %d SUCCEEDED: %d of %d steps", st.RunID, succeeded, total)
		plog.Info("run succeeded", "run", st.RunID, "steps", total)
	} else {
		line := fmt.Sprintf("run %d FAILED: %d of %d steps succeeded", st.RunID, succeeded, total)
		if reason != "" {
			line += "; " + reason
		}
		rlog.Printf("%s", line)
		plog.Info("run failed", "run", st.RunID, "succeeded", succeeded, "total", total)
	}
	e.Display.Summary(status, succeeded, total)

	e.notifyOnce(ctx, st, ledger, rlog, status, succeeded, total)

	if status == run.StatusFailed {
		return fmt.Errorf("%w: %d of %d steps succeeded", ErrRunFailed, succeeded, total)
	}
	return nil
}

// notifyOnce invokes the Notifier with the run log and the output records
// of every FAILED step plus every SUCCEEDED step flagged mail_on_success,
// ordered by step index. Delivery failure is logged and never changes the
// run's outcome.
func (e *Engine) notifyOnce(ctx context.Context, st run.State, ledger *run.Ledger, rlog *run.RunLog, status run.Status, succeeded, total int) {
	subject := fmt.Sprintf("%s run %d %s (%d of %d steps succeeded)",
		e.Config.RunName, st.RunID, status, succeeded, total)

	var attachments []string
	recs, err := ledger.Read(total)
	if err != nil {
		plog.Warn("could not read ledger for notification", "err", err)
	} else {
		for _, rec := range recs {
			def := e.Config.Steps[rec.Step-1]
			if rec.Status == run.StepFailed || (rec.Status == run.StepSucceeded && def.MailOnSuccess) {
				attachments = append(attachments, ledger.OutputPath(rec.Step))
			}
		}
	}

	if err := e.Notifier.Notify(ctx, subject, rlog.Path(), attachments); err != nil {
		plog.Warn("notification failed", "err", err)
		rlog.Printf("notification failed: %v", err)
	}
}

// prerequisitesMet reports whether every needed step is SUCCEEDED in the
// given ledger snapshot. An empty needs list is vacuously met. Evaluated
// fresh on every decision; a prerequisite may itself have been retried
// since the last iteration.
func prerequisitesMet(step types.Step, recs []run.Record) bool {
	for _, dep := range step.Needs {
		if recs[dep-1].Status != run.StepSucceeded {
			return false
		}
	}
	return true
}
