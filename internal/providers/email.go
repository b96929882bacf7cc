package providers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"kpi-monitor/internal/config"
	"kpi-monitor/internal/models"
)

// Email delivers alerts over SMTP to the configured recipient list.
type Email struct {
	server     string
	port       int
	username   string
	password   string
	recipients []string
}

// NewEmail builds the email channel from deployment configuration.
func NewEmail(cfg config.Config) (*Email, error) {
	e := &Email{
		server:     cfg.Email.SMTPServer,
		port:       cfg.Email.SMTPPort,
		username:   cfg.Email.Username,
		password:   cfg.Email.Password,
		recipients: cfg.Email.Recipients,
	}
	if e.server == "" || e.port == 0 || e.username == "" || e.password == "" {
		return nil, fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}
	if len(e.recipients) == 0 {
		return nil, fmt.Errorf("no email recipients configured")
	}
	for _, to := range e.recipients {
		if !strings.Contains(to, "@") {
			return nil, fmt.Errorf("invalid email address: %s", to)
		}
	}
	return e, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(_ context.Context, alert models.KPIAlert) error {
	subject := fmt.Sprintf("[%s] KPI alert: %s", strings.ToUpper(string(alert.Severity)), alert.KPIID)
	body := fmt.Sprintf("%s\n\nKPI: %s\nValue: %.2f\nThreshold: %.2f\nRaised: %s",
		alert.Message, alert.KPIID, alert.Value, alert.Threshold,
		alert.CreatedAt.Format("2006-01-02 15:04:05"))
	message := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		strings.Join(e.recipients, ", "), subject, body)

	auth := smtp.PlainAuth("", e.username, e.password, e.server)
	addr := fmt.Sprintf("%s:%d", e.server, e.port)
	if err := smtp.SendMail(addr, auth, e.username, e.recipients, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
