// Package types holds shared data structures used across packages.
package types

// Step is a single unit of work in a run: one external command plus an
// optional validation command and its scheduling policy.
type Step struct {
	Name            string `yaml:"name"`
	Command         string `yaml:"command"`
	ValidateCommand string `yaml:"validate_command,omitempty"`
	Needs           []int  `yaml:"needs,omitempty"` // 1-based indices of earlier steps
	BatchWindow     bool   `yaml:"batch_window,omitempty"`
	MaxTries        int    `yaml:"max_tries,omitempty"` // attempts allowed; at least 1
	HaltOnFailure   bool   `yaml:"halt_on_failure,omitempty"`
	MailOnSuccess   bool   `yaml:"mail_on_success,omitempty"`
}
