// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"bytes"
	"context"
	"embed"
	"log/slog"
	"net/url"
	"strings"
	"text/template"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/holomush/accounts/internal/account"
)

// Message kinds.
const (
	KindRegistration      = "registration"
	KindPasswordReset     = "password_reset"
	KindUnregisteredReset = "unregistered_reset"
)

// DefaultAppName names the service in message text.
const DefaultAppName = "Accounts"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var tracer = otel.Tracer("accounts/notify")

// Message is a rendered email.
type Message struct {
	Kind    string
	From    string
	To      string
	Subject string
	Body    string
	// Secrets lists substrings of Body that must never be logged.
	Secrets []string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// MailerConfig configures a Mailer.
type MailerConfig struct {
	From    string
	AppName string
	// ResetURL is the page that consumes reset tokens. When set, reset emails
	// carry a link with token and email query parameters.
	ResetURL string
	// TokenTTLMinutes is quoted in reset emails.
	TokenTTLMinutes int
}

// Mailer implements account.Notifier.
type Mailer struct {
	transport Transport
	cfg       MailerConfig
	resetURL  *url.URL
	logger    *slog.Logger
}

// MailerOption configures a Mailer.
type MailerOption func(*Mailer)

// WithMailerLogger sets the logger.
func WithMailerLogger(logger *slog.Logger) MailerOption {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMailer creates a Mailer.
func NewMailer(transport Transport, cfg MailerConfig, opts ...MailerOption) (*Mailer, error) {
	if transport == nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("transport is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("from address is required")
	}
	if !account.ValidEmail(cfg.From) {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").
			With("from", cfg.From).
			Errorf("from address is not a valid email")
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.TokenTTLMinutes <= 0 {
		cfg.TokenTTLMinutes = account.DefaultTokenTTLMinutes
	}

	m := &Mailer{
		transport: transport,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
	}
	if cfg.ResetURL != "" {
		u, err := url.Parse(cfg.ResetURL)
		if err != nil || !u.IsAbs() {
			return nil, oops.Code("NOTIFY_CONFIG_INVALID").
				With("reset_url", cfg.ResetURL).
				Errorf("reset URL must be absolute")
		}
		m.resetURL = u
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

type messageData struct {
	AppName    string
	Email      string
	Username   string
	Token      string
	Link       string
	TTLMinutes int
}

// SendRegistrationEmail implements account.Notifier.
func (m *Mailer) SendRegistrationEmail(ctx context.Context, acct *account.Account) error {
	if acct == nil {
		return oops.Code("NOTIFY_INVALID_RECIPIENT").Errorf("account is required")
	}
	return m.send(ctx, KindRegistration, acct.Email, m.data(acct.Email, acct.Username), nil)
}

// SendPasswordResetEmail implements account.Notifier.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, acct *account.Account, token string) error {
	if acct == nil {
		return oops.Code("NOTIFY_INVALID_RECIPIENT").Errorf("account is required")
	}
	if token == "" {
		return oops.Code("NOTIFY_INVALID_TOKEN").Errorf("reset token is required")
	}
	data := m.data(acct.Email, acct.Username)
	data.Token = token
	data.Link = m.resetLink(acct.Email, token)
	return m.send(ctx, KindPasswordReset, acct.Email, data, []string{token})
}

// SendPasswordResetNotificationForUnregisteredEmail implements account.Notifier.
func (m *Mailer) SendPasswordResetNotificationForUnregisteredEmail(ctx context.Context, email string) error {
	return m.send(ctx, KindUnregisteredReset, email, m.data(email, ""), nil)
}

func (m *Mailer) data(email, username string) messageData {
	if username == "" {
		username = email
	}
	return messageData{
		AppName:    m.cfg.AppName,
		Email:      email,
		Username:   username,
		TTLMinutes: m.cfg.TokenTTLMinutes,
	}
}

func (m *Mailer) resetLink(email, token string) string {
	if m.resetURL == nil {
		return ""
	}
	u := *m.resetURL
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *Mailer) send(ctx context.Context, kind, to string, data messageData, secrets []string) error {
	ctx, span := tracer.Start(ctx, "notify.send")
	defer span.End()
	span.SetAttributes(attribute.String("notify.kind", kind))

	if !account.ValidEmail(to) {
		err := oops.Code("NOTIFY_INVALID_RECIPIENT").
			With("kind", kind).
			Errorf("recipient is not a valid email")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid recipient")
		return err
	}

	msg, err := render(kind, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return err
	}
	msg.From = m.cfg.From
	msg.To = to
	msg.Secrets = secrets

	if err := m.transport.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return oops.Code("NOTIFY_SEND_FAILED").
			With("kind", kind).
			Wrap(err)
	}
	m.logger.DebugContext(ctx, "email handed to transport", "kind", kind)
	return nil
}

func render(kind string, data messageData) (Message, error) {
	var subject, body bytes.Buffer
	if err := templates.ExecuteTemplate(&subject, kind+".subject", data); err != nil {
		return Message{}, oops.Code("NOTIFY_RENDER_FAILED").With("kind", kind).With("part", "subject").Wrap(err)
	}
	if err := templates.ExecuteTemplate(&body, kind+".body", data); err != nil {
		return Message{}, oops.Code("NOTIFY_RENDER_FAILED").With("kind", kind).With("part", "body").Wrap(err)
	}
	return Message{
		Kind:    kind,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}

var _ account.Notifier = (*Mailer)(nil)
