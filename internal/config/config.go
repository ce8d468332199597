// Package config loads and validates the operator's job configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/genebarker/pmjrunner/internal/types"
	"github.com/genebarker/pmjrunner/internal/window"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks any configuration problem. Once it is returned nothing
// has executed and no run state has been touched.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level job configuration: run settings plus the ordered
// step definitions.
type Config struct {
	RunName     string       `yaml:"run_name"`
	WorkDir     string       `yaml:"work_dir"`
	Rotation    int          `yaml:"rotation"`     // run numbers wrap past this count
	RetryDelay  int          `yaml:"retry_delay"`  // seconds between tries of a step
	WindowStart string       `yaml:"window_start"` // "HH:MM"
	WindowEnd   string       `yaml:"window_end"`   // "HH:MM"; equal to start = always open
	Subscribers []string     `yaml:"subscribers"`
	SMTP        SMTPConfig   `yaml:"smtp"`
	LogLevel    string       `yaml:"log_level"`
	Steps       []types.Step `yaml:"steps"`

	path string // source file, kept so a run can record a verbatim copy
}

// SMTPConfig holds the mail transport settings used when subscribers are
// configured.
type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	From        string `yaml:"from"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Password returns the SMTP password resolved from the configured
// environment variable, or empty when none is set.
func (s SMTPConfig) Password() string {
	if s.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(s.PasswordEnv)
}

// Load reads, parses, and validates a job configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalid, path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes and validates a job configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %v", ErrInvalid, err)
	}
	for i := range cfg.Steps {
		// max_tries omitted in YAML decodes as 0; a step always gets one try.
		if cfg.Steps[i].MaxTries == 0 {
			cfg.Steps[i].MaxTries = 1
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Rotation:    99,
		WindowStart: "00:00",
		WindowEnd:   "00:00",
		SMTP:        SMTPConfig{Port: 587},
		LogLevel:    "info",
	}
}

// Validate checks every run setting and step definition. The first violated
// constraint is reported; nothing is mutated.
func (c *Config) Validate() error {
	if c.RunName == "" {
		return fmt.Errorf("%w: run_name is required", ErrInvalid)
	}
	if c.WorkDir == "" {
		return fmt.Errorf("%w: work_dir is required", ErrInvalid)
	}
	if fi, err := os.Stat(c.WorkDir); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: work_dir %q is not an existing directory", ErrInvalid, c.WorkDir)
	}
	if c.Rotation < 1 || c.Rotation > 999999 {
		return fmt.Errorf("%w: rotation must be within 1..999999, got %d", ErrInvalid, c.Rotation)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry_delay must not be negative, got %d", ErrInvalid, c.RetryDelay)
	}
	if _, err := window.Parse(c.WindowStart, c.WindowEnd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, addr := range c.Subscribers {
		if !strings.Contains(addr, "@") {
			return fmt.Errorf("%w: subscriber %q is not a mail address", ErrInvalid, addr)
		}
	}
	if len(c.Subscribers) > 0 {
		if c.SMTP.Host == "" {
			return fmt.Errorf("%w: smtp.host is required when subscribers are set", ErrInvalid)
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("%w: smtp.from is required when subscribers are set", ErrInvalid)
		}
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalid)
	}
	for i, s := range c.Steps {
		n := i + 1
		if s.Name == "" {
			return fmt.Errorf("%w: step %d: name is required", ErrInvalid, n)
		}
		if s.Command == "" {
			return fmt.Errorf("%w: step %d (%s): command is required", ErrInvalid, n, s.Name)
		}
		if s.MaxTries < 1 {
			return fmt.Errorf("%w: step %d (%s): max_tries must be at least 1, got %d", ErrInvalid, n, s.Name, s.MaxTries)
		}
		for _, dep := range s.Needs {
			if dep < 1 || dep >= n {
				return fmt.Errorf("%w: step %d (%s): needs may only reference earlier steps, got %d", ErrInvalid, n, s.Name, dep)
			}
		}
	}
	return nil
}

// Window returns the configured batch window.
func (c *Config) Window() (window.Window, error) {
	return window.Parse(c.WindowStart, c.WindowEnd)
}

// WriteCopy records the configuration that started a run: a verbatim copy
// of the source file when the config was loaded from one, a marshaled
// rendering otherwise.
func (c *Config) WriteCopy(path string) error {
	var data []byte
	var err error
	if c.path != "" {
		data, err = os.ReadFile(c.path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", c.path, err)
		}
	} else {
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
