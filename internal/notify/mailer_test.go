// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/internal/notify"
	"github.com/holomush/accounts/pkg/errutil"
)

type captureTransport struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (c *captureTransport) Send(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureTransport) last(t *testing.T) notify.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no message sent")
	return c.sent[len(c.sent)-1]
}

func newMailer(t *testing.T, cfg notify.MailerConfig) (*notify.Mailer, *captureTransport) {
	t.Helper()
	transport := &captureTransport{}
	if cfg.From == "" {
		cfg.From = "noreply@example.com"
	}
	m, err := notify.NewMailer(transport, cfg)
	require.NoError(t, err)
	return m, transport
}

func TestNewMailer_Validation(t *testing.T) {
	tests := []struct {
		name      string
		transport notify.Transport
		cfg       notify.MailerConfig
	}{
		{"nil transport", nil, notify.MailerConfig{From: "a@example.com"}},
		{"missing from", &captureTransport{}, notify.MailerConfig{}},
		{"invalid from", &captureTransport{}, notify.MailerConfig{From: "nope"}},
		{"relative reset url", &captureTransport{}, notify.MailerConfig{From: "a@example.com", ResetURL: "/reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := notify.NewMailer(tt.transport, tt.cfg)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "NOTIFY_CONFIG_INVALID")
		})
	}
}

func TestMailer_SendRegistrationEmail(t *testing.T) {
	m, transport := newMailer(t, notify.MailerConfig{AppName: "Example"})

	acct := &account.Account{ID: "1", Email: "user@example.com", Username: "user"}
	require.NoError(t, m.SendRegistrationEmail(context.Background(), acct))

	msg := transport.last(t)
	assert.Equal(t, notify.KindRegistration, msg.Kind)
	assert.Equal(t, "noreply@example.com", msg.From)
	assert.Equal(t, "user@example.com", msg.To)
	assert.Equal(t, "Welcome to Example", msg.Subject)
	assert.Contains(t, msg.Body, "Hello user,")
	assert.Contains(t, msg.Body, "user@example.com")
	assert.Empty(t, msg.Secrets)
}

func TestMailer_SendPasswordResetEmail(t *testing.T) {
	t.Run("with reset link", func(t *testing.T) {
		m, transport := newMailer(t, notify.MailerConfig{
			ResetURL:        "https://example.com/reset?lang=en",
			TokenTTLMinutes: 30,
		})
		acct := &account.Account{Email: "user+tag@example.com"}

		require.NoError(t, m.SendPasswordResetEmail(context.Background(), acct, "tok-123"))

		msg := transport.last(t)
		assert.Equal(t, notify.KindPasswordReset, msg.Kind)
		assert.Equal(t, []string{"tok-123"}, msg.Secrets)
		assert.Contains(t, msg.Body, "30 minutes")
		assert.Contains(t, msg.Body, "Hello user+tag@example.com,", "username falls back to email")

		var link string
		for _, line := range strings.Split(msg.Body, "\n") {
			if strings.Contains(line, "https://") {
				link = strings.TrimSpace(line)
			}
		}
		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, "example.com", u.Host)
		assert.Equal(t, "tok-123", u.Query().Get("token"))
		assert.Equal(t, "user+tag@example.com", u.Query().Get("email"))
		assert.Equal(t, "en", u.Query().Get("lang"))
	})

	t.Run("without reset link carries the token", func(t *testing.T) {
		m, transport := newMailer(t, notify.MailerConfig{})
		require.NoError(t, m.SendPasswordResetEmail(context.Background(), &account.Account{Email: "u@example.com"}, "tok-456"))

		msg := transport.last(t)
		assert.Contains(t, msg.Body, "tok-456")
		assert.Contains(t, msg.Body, "60 minutes")
	})

	t.Run("requires token", func(t *testing.T) {
		m, _ := newMailer(t, notify.MailerConfig{})
		err := m.SendPasswordResetEmail(context.Background(), &account.Account{Email: "u@example.com"}, "")
		errutil.AssertErrorCode(t, err, "NOTIFY_INVALID_TOKEN")
	})
}

func TestMailer_SendUnregisteredNotice(t *testing.T) {
	m, transport := newMailer(t, notify.MailerConfig{})
	require.NoError(t, m.SendPasswordResetNotificationForUnregisteredEmail(context.Background(), "ghost@example.com"))

	msg := transport.last(t)
	assert.Equal(t, notify.KindUnregisteredReset, msg.Kind)
	assert.Equal(t, "ghost@example.com", msg.To)
	assert.Contains(t, msg.Body, "no\naccount is registered")
}

func TestMailer_RejectsInvalidRecipient(t *testing.T) {
	m, transport := newMailer(t, notify.MailerConfig{})
	err := m.SendPasswordResetNotificationForUnregisteredEmail(context.Background(), "not-an-email")
	errutil.AssertErrorCode(t, err, "NOTIFY_INVALID_RECIPIENT")
	assert.Empty(t, transport.sent)
}

func TestMailer_TransportFailure(t *testing.T) {
	m, transport := newMailer(t, notify.MailerConfig{})
	transport.err = errors.New("relay down")

	err := m.SendRegistrationEmail(context.Background(), &account.Account{Email: "u@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.err)
	errutil.AssertErrorCode(t, err, "NOTIFY_SEND_FAILED")
	errutil.AssertErrorContext(t, err, "kind", notify.KindRegistration)
}
