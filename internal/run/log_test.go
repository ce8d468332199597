package run

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunLogAppendsAcrossReopens(t *testing.T) {
	dir := t.TempDir()

	l, err := OpenRunLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	l.Printf("run %d started", 7)
	l.Printf("step 1 (extract) succeeded\n")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// A restarted engine reopens the same log and keeps appending.
	l, err = OpenRunLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	l.Printf("run 7 restarted")
	l.Close()

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[") {
			t.Errorf("line missing timestamp: %q", line)
		}
	}
	if !strings.Contains(lines[0], "run 7 started") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[2], "restarted") {
		t.Errorf("unexpected last line: %q", lines[2])
	}
}

func TestRunLogNilReceiver(t *testing.T) {
	var l *RunLog
	l.Printf("ignored")
	if err := l.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
	if l.Path() != "" {
		t.Errorf("nil Path() = %q", l.Path())
	}
}
