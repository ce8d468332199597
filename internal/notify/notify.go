// Package notify delivers the run log to subscribers when a run ends.
package notify

import (
	"context"
)

// Notifier is invoked exactly once per run termination. Delivery failure
// is the caller's to log; it never changes the run's outcome.
type Notifier interface {
	Notify(ctx context.Context, subject, logPath string, attachments []string) error
}

// Nop is the notifier used when no subscribers are configured.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, []string) error { return nil }
