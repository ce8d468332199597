package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// Mailer sends the run log and step output records to subscribers over
// SMTP.
type Mailer struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	To       []string
}

func (m *Mailer) Notify(ctx context.Context, subject, logPath string, attachments []string) error {
	msg, err := m.buildMessage(subject, logPath, attachments)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password),
		)
	}

	client, err := mail.NewClient(m.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending to %s: %w", strings.Join(m.To, ", "), err)
	}
	return nil
}

func (m *Mailer) buildMessage(subject, logPath string, attachments []string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("sender %q: %w", m.From, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("recipients %v: %w", m.To, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body(subject, attachments))
	if logPath != "" {
		msg.AttachFile(logPath)
	}
	for _, path := range attachments {
		msg.AttachFile(path)
	}
	return msg, nil
}

func body(subject string, attachments []string) string {
	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n\nThe run log is attached")
	if len(attachments) == 1 {
		b.WriteString(" along with 1 step output record")
	} else if len(attachments) > 1 {
		fmt.Fprintf(&b, " along with %d step output records", len(attachments))
	}
	b.WriteString(".\n")
	return b.String()
}

var _ Notifier = (*Mailer)(nil)
