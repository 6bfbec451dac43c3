// Package mailer delivers reorder alert emails over SMTP. It is an external
// collaborator: delivery failures never touch ledger state.
package mailer

import (
	"context"
	"errors"

	"github.com/wneessen/go-mail"

	"smartstock/m/domain"
	"smartstock/m/internal/alerts"
	"smartstock/m/internal/servererrors"
)

const serviceName = "email service"

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends reorder alert emails.
type Mailer struct {
	cfg Config
}

// New constructs a Mailer. The SMTP connection is dialed per send.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendReorderAlert renders and delivers the reorder email for the given
// alerts.
func (m *Mailer) SendReorderAlert(ctx context.Context, to string, reorderAlerts []domain.ReorderAlert) error {
	if m.cfg.Host == "" {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: errors.New("SMTP host not configured")}
	}

	body, err := alerts.EmailBody(reorderAlerts)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	if err := msg.To(to); err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	msg.Subject(alerts.EmailSubject(reorderAlerts))
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	return nil
}
