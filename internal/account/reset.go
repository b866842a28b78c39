// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/codes"
)

// MsgResetFailed is returned when a password reset request cannot be served.
const MsgResetFailed = "Could not send password reset email"

// ResetOutcome is the result of a password reset request. It is identical
// whether or not an account exists for the email.
type ResetOutcome struct {
	Email string
}

// PasswordResetter issues password reset tokens.
//
// Registered and unregistered addresses produce the same ResetOutcome, but
// the work done differs, so response latency can still reveal whether an
// address is registered.
type PasswordResetter struct {
	users    UserStore
	tokens   TokenStore
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewPasswordResetter creates a PasswordResetter.
func NewPasswordResetter(users UserStore, tokens TokenStore, notifier Notifier, cfg Config, opts ...Option) (*PasswordResetter, error) {
	switch {
	case users == nil:
		return nil, missingDependency("user store")
	case tokens == nil:
		return nil, missingDependency("token store")
	case notifier == nil:
		return nil, missingDependency("notifier")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &PasswordResetter{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		logger:   o.logger,
		now:      o.now,
	}, nil
}

// RequestPasswordReset emails a reset token to a registered address, or a
// notice to an unregistered one.
func (p *PasswordResetter) RequestPasswordReset(ctx context.Context, email string) (_ ResetOutcome, err error) {
	started := time.Now()
	outcome := OutcomeError
	ctx, span := tracer.Start(ctx, "account.request_password_reset")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		recordWorkflow(WorkflowPasswordReset, outcome, started)
	}()

	if fields := ValidatePasswordResetRequest(email); fields != nil {
		outcome = OutcomeInvalid
		return ResetOutcome{}, validationError(MsgValidEmailRequired, fields)
	}

	acct, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return ResetOutcome{}, p.fail("find account", email, err)
	}

	if acct == nil {
		if err = p.notifier.SendPasswordResetNotificationForUnregisteredEmail(ctx, email); err != nil {
			return ResetOutcome{}, p.fail("notify unregistered email", email, err)
		}
		outcome = OutcomeUnknownEmail
		return ResetOutcome{Email: email}, nil
	}

	if p.cfg.InvalidatePriorTokens {
		if err = p.tokens.RemoveByEmail(ctx, email); err != nil {
			return ResetOutcome{}, p.fail("invalidate prior tokens", email, err)
		}
	}

	token, err := NewPasswordResetToken(email, p.now(), p.cfg.TokenTTL())
	if err != nil {
		return ResetOutcome{}, p.fail("issue token", email, err)
	}
	if err = p.tokens.Add(ctx, token); err != nil {
		return ResetOutcome{}, p.fail("store token", email, err)
	}
	if err = p.notifier.SendPasswordResetEmail(ctx, acct, token.Token); err != nil {
		return ResetOutcome{}, p.fail("send reset email", email, err)
	}

	outcome = OutcomeSuccess
	p.logger.Info("password reset token issued",
		"user_id", p.cfg.UserIDGetter(acct),
		"expires_at", token.ExpiresAt)
	return ResetOutcome{Email: email}, nil
}

func (p *PasswordResetter) fail(operation, email string, err error) error {
	return dependencyError(MsgResetFailed, oops.Code("ACCOUNT_RESET_FAILED").
		With("operation", operation).
		With("email", email).
		Wrap(err))
}
