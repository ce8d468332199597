package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/genebarker/pmjrunner/internal/types"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := defaults()
	cfg.RunName = "nightly-close"
	cfg.WorkDir = t.TempDir()
	cfg.Steps = []types.Step{
		{Name: "extract", Command: "bin/extract.sh", MaxTries: 1},
		{Name: "load", Command: "bin/load.sh", Needs: []int{1}, MaxTries: 3},
	}
	return cfg
}

func TestValidConfigPasses(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	data := "run_name: nightly-close\n" +
		"work_dir: " + dir + "\n" +
		"steps:\n" +
		"  - name: extract\n" +
		"    command: bin/extract.sh\n" +
		"  - name: load\n" +
		"    command: bin/load.sh\n" +
		"    max_tries: 3\n"

	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rotation != 99 {
		t.Errorf("expected default rotation 99, got %d", cfg.Rotation)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.LogLevel)
	}
	if cfg.WindowStart != "00:00" || cfg.WindowEnd != "00:00" {
		t.Errorf("expected always-open default window, got %s-%s", cfg.WindowStart, cfg.WindowEnd)
	}
	if cfg.Steps[0].MaxTries != 1 {
		t.Errorf("expected omitted max_tries to default to 1, got %d", cfg.Steps[0].MaxTries)
	}
	if cfg.Steps[1].MaxTries != 3 {
		t.Errorf("expected explicit max_tries preserved, got %d", cfg.Steps[1].MaxTries)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing run_name", func(c *Config) { c.RunName = "" }},
		{"missing work_dir", func(c *Config) { c.WorkDir = "" }},
		{"work_dir not a directory", func(c *Config) { c.WorkDir = filepath.Join(c.WorkDir, "missing") }},
		{"rotation too small", func(c *Config) { c.Rotation = 0 }},
		{"rotation too large", func(c *Config) { c.Rotation = 1000000 }},
		{"negative retry_delay", func(c *Config) { c.RetryDelay = -30 }},
		{"malformed window start", func(c *Config) { c.WindowStart = "7:00" }},
		{"malformed window end", func(c *Config) { c.WindowEnd = "24:00" }},
		{"subscriber without at sign", func(c *Config) { c.Subscribers = []string{"ops"} }},
		{"subscribers without smtp host", func(c *Config) {
			c.Subscribers = []string{"ops@example.com"}
			c.SMTP.Host = ""
		}},
		{"subscribers without smtp from", func(c *Config) {
			c.Subscribers = []string{"ops@example.com"}
			c.SMTP.Host = "mail.example.com"
			c.SMTP.From = ""
		}},
		{"no steps", func(c *Config) { c.Steps = nil }},
		{"step without name", func(c *Config) { c.Steps[0].Name = "" }},
		{"step without command", func(c *Config) { c.Steps[1].Command = "" }},
		{"zero max_tries", func(c *Config) { c.Steps[0].MaxTries = 0 }},
		{"negative max_tries", func(c *Config) { c.Steps[0].MaxTries = -1 }},
		{"step needing itself", func(c *Config) { c.Steps[0].Needs = []int{1} }},
		{"step needing a later step", func(c *Config) { c.Steps[0].Needs = []int{2} }},
		{"step needing index zero", func(c *Config) { c.Steps[1].Needs = []int{0} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error not marked ErrInvalid: %v", err)
			}
		})
	}
}

func TestLoadAndWriteCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pmjrunner.yaml")
	content := "run_name: nightly-close\n" +
		"work_dir: " + dir + "\n" +
		"steps:\n" +
		"  - name: extract\n" +
		"    command: bin/extract.sh\n"
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RunName != "nightly-close" {
		t.Errorf("expected run name 'nightly-close', got %q", cfg.RunName)
	}

	dst := filepath.Join(dir, "run-config.yaml")
	if err := cfg.WriteCopy(dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Errorf("copy differs from source:\n%s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("error not marked ErrInvalid: %v", err)
	}
}

func TestSMTPPassword(t *testing.T) {
	t.Setenv("PMJ_SMTP_PASSWORD", "hunter2")
	s := SMTPConfig{PasswordEnv: "PMJ_SMTP_PASSWORD"}
	if got := s.Password(); got != "hunter2" {
		t.Errorf("expected password from env, got %q", got)
	}
	if got := (SMTPConfig{}).Password(); got != "" {
		t.Errorf("expected empty password without password_env, got %q", got)
	}
}
