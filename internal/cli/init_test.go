package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/genebarker/pmjrunner/internal/assets"
)

func TestInitCreatesFile(t *testing.T) {
	orig := configPath
	configPath = filepath.Join(t.TempDir(), "pmjrunner.yaml")
	defer func() { configPath = orig }()

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if string(data) != string(assets.StarterConfig()) {
		t.Error("created config does not match the embedded starter")
	}
}

func TestInitSkipsWhenFileExists(t *testing.T) {
	orig := configPath
	configPath = filepath.Join(t.TempDir(), "pmjrunner.yaml")
	defer func() { configPath = orig }()

	original := []byte("run_name: keep-me\n")
	if err := os.WriteFile(configPath, original, 0644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(original) {
		t.Errorf("runInit overwrote existing config: got %q, want %q", data, original)
	}
}
