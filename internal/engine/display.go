package engine

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/genebarker/pmjrunner/internal/run"
)

// Display writes step progress to the operator's terminal. A nil Display
// is silent; headless callers and tests rely on that.
type Display struct {
	w    io.Writer
	stop chan struct{}
	done chan struct{}
}

// NewDisplay creates a display that writes to stdout.
func NewDisplay() *Display {
	return &Display{w: os.Stdout}
}

// nameColumnWidth is the fixed display width reserved for the step name.
const nameColumnWidth = 20

const ruleWidth = 64

// ansiEscapeRe matches ANSI terminal escape sequences and C0/DEL control
// characters.
var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|[\x00-\x1f\x7f]`)

// truncateName strips escape sequences from an operator-supplied step name
// and truncates it to the name column, appending an ellipsis if needed.
func truncateName(name string) string {
	name = ansiEscapeRe.ReplaceAllString(name, "")
	if utf8.RuneCountInString(name) <= nameColumnWidth {
		return name
	}
	runes := []rune(name)
	return string(runes[:nameColumnWidth-1]) + "…"
}

func stepLabel(step, total int, name string) string {
	return fmt.Sprintf("[%d/%d] %-*s", step, total, nameColumnWidth, truncateName(name))
}

// Header prints the run banner.
func (d *Display) Header(runName string, runID int) {
	if d == nil {
		return
	}
	fmt.Fprintf(d.w, "\n⚙ pmjrunner — %s (run %d)\n", runName, runID)
	fmt.Fprintln(d.w, strings.Repeat("─", ruleWidth))
}

// StepStart prints a step-in-progress line and starts an elapsed time
// ticker that rewrites the line in place every second.
func (d *Display) StepStart(step, total int, name string, attempt, maxTries int) {
	if d == nil {
		return
	}
	d.stopTicker()
	line := fmt.Sprintf("⏳ %s running...", stepLabel(step, total, name))
	if maxTries > 1 {
		line = fmt.Sprintf("⏳ %s try %d/%d running...", stepLabel(step, total, name), attempt, maxTries)
	}
	d.startTicker(line)
}

// StepValidating replaces the running line while the validation command
// executes.
func (d *Display) StepValidating(step, total int, name string) {
	if d == nil {
		return
	}
	d.stopTicker()
	d.startTicker(fmt.Sprintf("🔍 %s validating...   ", stepLabel(step, total, name)))
}

// StepDone overwrites the in-progress line with the completed step line.
func (d *Display) StepDone(step, total int, name string, duration time.Duration) {
	if d == nil {
		return
	}
	d.stopTicker()
	fmt.Fprintf(d.w, "\r✅ %s succeeded  %.1fs      \n", stepLabel(step, total, name), duration.Seconds())
}

// StepFailed overwrites the in-progress line with the failed attempt line.
func (d *Display) StepFailed(step, total int, name string, exitCode, attempt, maxTries int) {
	if d == nil {
		return
	}
	d.stopTicker()
	fmt.Fprintf(d.w, "\r❌ %s try %d/%d exited %d      \n", stepLabel(step, total, name), attempt, maxTries, exitCode)
}

// StepBlocked prints a blocked step line.
func (d *Display) StepBlocked(step, total int, name, reason string) {
	if d == nil {
		return
	}
	d.stopTicker()
	fmt.Fprintf(d.w, "⛔ %s blocked: %s\n", stepLabel(step, total, name), reason)
}

// StepSkipped prints an already-succeeded step line.
func (d *Display) StepSkipped(step, total int, name string) {
	if d == nil {
		return
	}
	d.stopTicker()
	fmt.Fprintf(d.w, "⏩ %s already succeeded\n", stepLabel(step, total, name))
}

// Summary prints the final run outcome.
func (d *Display) Summary(status run.Status, succeeded, total int) {
	if d == nil {
		return
	}
	d.stopTicker()
	fmt.Fprintln(d.w, strings.Repeat("─", ruleWidth))
	if status == run.StatusSucceeded {
		fmt.Fprintf(d.w, "✅ Run SUCCEEDED  %d/%d steps\n\n", succeeded, total)
	} else {
		fmt.Fprintf(d.w, "❌ Run FAILED  %d/%d steps succeeded\n\n", succeeded, total)
	}
}

// startTicker prints the line and rewrites it with elapsed seconds every
// second until stopTicker is called.
func (d *Display) startTicker(line string) {
	fmt.Fprint(d.w, "\r"+line)

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(d.w, "\r%s %.0fs", line, time.Since(start).Seconds())
			}
		}
	}()
}

// stopTicker stops the elapsed time goroutine and waits for it to finish.
func (d *Display) stopTicker() {
	if d.stop != nil {
		close(d.stop)
		<-d.done
		d.stop = nil
		d.done = nil
	}
}
