package run

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	want := State{
		RunID:       7,
		Status:      StatusRunning,
		CurrentStep: 2,
		StepName:    "transform",
		Attempt:     1,
		UpdatedAt:   time.Date(2026, 3, 14, 1, 59, 26, 0, time.UTC),
	}

	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != want.RunID || got.Status != want.Status ||
		got.CurrentStep != want.CurrentStep || got.StepName != want.StepName ||
		got.Attempt != want.Attempt {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	_, err := NewStore(t.TempDir()).Load()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"unknown status", `{"run_id": 1, "status": "PAUSED"}`},
		{"negative run id", `{"run_id": -1, "status": "NEW"}`},
		{"negative attempt", `{"run_id": 1, "status": "RUNNING", "attempt": -2}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(dir)
			if err := os.WriteFile(store.Path(), []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := store.Load()
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(State{RunID: 1, Status: StatusNew}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
	if _, err := os.Stat(filepath.Join(dir, "run-state.json")); err != nil {
		t.Errorf("state record not written: %v", err)
	}
}

func TestStoreSaveRejectsInvalidState(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Save(State{RunID: 1, Status: "BOGUS"})
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusNew:       false,
		StatusRunning:   false,
		StatusSucceeded: true,
		StatusFailed:    true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
