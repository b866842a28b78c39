// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// SMTPConfig configures an SMTPTransport.
type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	// Retries is the number of extra attempts after a transient failure.
	Retries   uint64
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport delivers messages through an SMTP relay. Transient failures
// are retried with exponential backoff; 5xx replies are permanent.
type SMTPTransport struct {
	cfg      SMTPConfig
	auth     smtp.Auth
	sendMail sendMailFunc
	now      func() time.Time
	logger   *slog.Logger
}

// SMTPOption configures an SMTPTransport.
type SMTPOption func(*SMTPTransport)

// WithSMTPLogger sets the logger.
func WithSMTPLogger(logger *slog.Logger) SMTPOption {
	return func(t *SMTPTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewSMTPTransport creates an SMTPTransport.
func NewSMTPTransport(cfg SMTPConfig, opts ...SMTPOption) (*SMTPTransport, error) {
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil || host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").
			With("smtp_addr", cfg.Addr).
			Errorf("smtp address must be host:port")
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}

	t := &SMTPTransport{
		cfg:      cfg,
		sendMail: smtp.SendMail,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	if cfg.Username != "" {
		t.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send implements Transport.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	payload := t.format(msg)
	backoff := retry.WithMaxRetries(t.cfg.Retries,
		retry.WithCappedDuration(t.cfg.MaxDelay, retry.NewExponential(t.cfg.BaseDelay)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // Context errors are wrapped below
		}
		err := t.sendMail(t.cfg.Addr, t.auth, msg.From, []string{msg.To}, payload)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		t.logger.WarnContext(ctx, "smtp send failed, retrying",
			"kind", msg.Kind,
			"attempt", attempt,
			"error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return oops.Code("NOTIFY_SMTP_FAILED").
			With("kind", msg.Kind).
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// format builds an RFC 5322 message with CRLF line endings.
func (t *SMTPTransport) format(msg Message) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", t.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}

// isPermanent reports whether err is an SMTP 5xx reply.
func isPermanent(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code >= 500
}
