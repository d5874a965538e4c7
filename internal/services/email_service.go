package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"unistay/internal/config"
	"unistay/internal/utils"
)

// EmailSender delivers a single plain-text message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

func NewEmailSender(cfg config.EmailConfig) (EmailSender, error) {
	switch cfg.Provider {
	case "smtp":
		return &smtpSender{
			dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
			from:   cfg.FromEmail,
			name:   cfg.FromName,
		}, nil
	case "sendgrid":
		return &sendgridSender{
			client: sendgrid.NewSendClient(cfg.SendgridAPIKey),
			from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		}, nil
	case "log", "":
		return logSender{}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.name)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	// gomail has no context support; give up waiting when ctx ends
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", to, ctx.Err())
	}
}

type sendgridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

func (s *sendgridSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), body, "")
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", to, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send to %s: status %d: %s", to, resp.StatusCode, resp.Body)
	}
	return nil
}

// logSender is used in development; it only writes the message to the log.
type logSender struct{}

func (logSender) Send(_ context.Context, to, subject, body string) error {
	utils.Logger.WithField("to", to).Infof("[email] %s\n%s", subject, body)
	return nil
}

// EmailChannel adapts an EmailSender to the dispatcher.
type EmailChannel struct {
	Sender EmailSender
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, n Notification) error {
	if n.To == "" {
		return nil
	}
	return c.Sender.Send(ctx, n.To, n.Subject, n.Body)
}
