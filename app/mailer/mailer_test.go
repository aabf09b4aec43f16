package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/secondhand-market/config"
)

func testSMTPConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "mailer",
		Password: "secret",
		From:     "no-reply@example.com",
	}
}

func TestSMTPMailer_SendVerificationCode(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}
	m := newSMTPMailer(testSMTPConfig(), slog.Default(), send)

	err := m.SendVerificationCode(context.Background(), "buyer@example.com", "123456", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: buyer@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Your verification code\r\n")
	assert.Contains(t, gotMsg, "Your verification code is 123456.")
	assert.Contains(t, gotMsg, "expires in 10 minutes")
}

func TestSMTPMailer_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return errors.New("connection refused")
	}
	m := newSMTPMailer(testSMTPConfig(), slog.Default(), send)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, m.SendVerificationCode(ctx, "a@example.com", "000000", time.Minute))
	}
	err := m.SendVerificationCode(ctx, "a@example.com", "000000", time.Minute)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := newSMTPMailer(testSMTPConfig(), slog.Default(), func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendVerificationCode(ctx, "a@example.com", "1", time.Minute), context.Canceled)
}

func TestNew_FallsBackToLogMailer(t *testing.T) {
	m := New(config.SMTPConfig{}, slog.Default())
	_, ok := m.(*LogMailer)
	assert.True(t, ok)
	assert.NoError(t, m.SendVerificationCode(context.Background(), "a@example.com", "654321", time.Minute))
}
