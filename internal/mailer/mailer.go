// Package mailer sends account emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	mail "github.com/wneessen/go-mail"

	"github.com/uniboxhq/unibox/internal/config"
)

// Mailer sends verification and password reset emails. With no SMTP host
// configured it degrades to logging the would-be email, which keeps local
// development working without a mail server.
type Mailer struct {
	cfg    config.MailConfig
	logger *slog.Logger
}

func New(log *slog.Logger, cfg config.MailConfig) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{
		cfg:    cfg,
		logger: log.With(slog.String("service", "mailer")),
	}
}

// SendVerification emails the signup verification token.
func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("Welcome to Unibox.\n\nYour email verification token is:\n\n%s\n\nThe token expires in 24 hours.", token)
	return m.send(ctx, to, "Verify your Unibox email", body)
}

// SendOTP emails the password reset code.
func (m *Mailer) SendOTP(ctx context.Context, to, otp string) error {
	body := fmt.Sprintf("Your Unibox password reset code is:\n\n%s\n\nThe code expires in 10 minutes. If you did not request a reset, ignore this email.", otp)
	return m.send(ctx, to, "Unibox password reset", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m.cfg.Host == "" {
		m.logger.Info("smtp not configured, email suppressed",
			slog.String("to", to),
			slog.String("subject", subject))
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	msg.SetMessageID()

	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(m.cfg.Port))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
