// Package mailer delivers transactional email such as verification codes.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/FACorreiaa/secondhand-market/app/observability/metrics"
	"github.com/FACorreiaa/secondhand-market/config"
)

// Mailer sends verification codes to users.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// New returns an SMTP mailer, or a log-only mailer when no SMTP host is configured.
func New(cfg config.SMTPConfig, logger *slog.Logger) Mailer {
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured, verification codes will only be logged")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg, logger)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var _ Mailer = (*SMTPMailer)(nil)

type SMTPMailer struct {
	cfg     config.SMTPConfig
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker
	send    sendFunc
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) *SMTPMailer {
	return newSMTPMailer(cfg, logger, smtp.SendMail)
}

func newSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger, send sendFunc) *SMTPMailer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &SMTPMailer{cfg: cfg, logger: logger, breaker: breaker, send: send}
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := m.logger.With(slog.String("method", "SendVerificationCode"), slog.String("to", to))

	msg := buildMessage(m.cfg.From, to, "Your verification code", verificationBody(code, ttl))
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.send(addr, auth, m.cfg.From, []string{to}, msg)
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to send verification email", slog.Any("error", err))
		metrics.Get().OutboundCallFailuresTotal.Add(ctx, 1)
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	l.InfoContext(ctx, "Verification email sent")
	return nil
}

var _ Mailer = (*LogMailer)(nil)

// LogMailer writes codes to the log. Development only.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	m.logger.InfoContext(ctx, "Verification code (not emailed)",
		slog.String("to", to),
		slog.String("code", code),
		slog.Duration("ttl", ttl))
	return nil
}

func verificationBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s.\r\n\r\nIt expires in %d minutes. If you did not request it, ignore this email.\r\n",
		code, int(ttl.Minutes()))
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
