package run

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNextRunID(t *testing.T) {
	tests := []struct {
		current, rotation, want int
	}{
		{0, 99, 1},
		{1, 99, 2},
		{98, 99, 99},
		{99, 99, 1},
		{5, 5, 1},
		{999999, 999999, 1},
	}
	for _, tt := range tests {
		if got := NextRunID(tt.current, tt.rotation); got != tt.want {
			t.Errorf("NextRunID(%d, %d) = %d, want %d", tt.current, tt.rotation, got, tt.want)
		}
	}
}

func TestRunDirZeroPadded(t *testing.T) {
	w := NewWorkspace("/var/lib/job")
	if got := w.RunDir(7); !strings.HasSuffix(got, filepath.Join("history", "000007")) {
		t.Errorf("RunDir(7) = %q", got)
	}
}

func TestInitRunDirRecyclesSlot(t *testing.T) {
	w := NewWorkspace(t.TempDir())

	dir, err := w.InitRunDir(1)
	if err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "step-01.out")
	if err := os.WriteFile(stale, []byte("old run"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := w.InitRunDir(1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("prior contents survived run dir recycling")
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("run dir missing after init: %v", err)
	}
}

func TestRunsListsNumericDirsAscending(t *testing.T) {
	w := NewWorkspace(t.TempDir())
	for _, id := range []int{3, 1} {
		if _, err := w.InitRunDir(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(w.HistoryDir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(w.HistoryDir(), "latest"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids, err := w.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("Runs() = %v, want [1 3]", ids)
	}
}

func TestRunsWithoutHistory(t *testing.T) {
	ids, err := NewWorkspace(t.TempDir()).Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no runs, got %v", ids)
	}
}
