// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MsgUnregisterFailed is returned when a deregistration step fails.
const MsgUnregisterFailed = "Could not unregister user"

// UnregisterOutcome is the non-error result of Unregister.
type UnregisterOutcome int

// Unregister outcomes.
const (
	// Unregistered means the account was logged out and removed.
	Unregistered UnregisterOutcome = iota + 1
	// Unauthenticated means the carrier held no session. The SessionService
	// owns the response for this outcome.
	Unauthenticated
)

func (o UnregisterOutcome) String() string {
	switch o {
	case Unregistered:
		return "unregistered"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Deregistrar removes the account of the current session.
type Deregistrar struct {
	users    UserStore
	sessions SessionService
	cfg      Config
	logger   *slog.Logger
}

// NewDeregistrar creates a Deregistrar.
func NewDeregistrar(users UserStore, sessions SessionService, cfg Config, opts ...Option) (*Deregistrar, error) {
	switch {
	case users == nil:
		return nil, missingDependency("user store")
	case sessions == nil:
		return nil, missingDependency("session service")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Deregistrar{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		logger:   o.logger,
	}, nil
}

// Unregister logs out the account bound to carrier and then removes it.
// Removal is never attempted unless logout succeeded.
func (d *Deregistrar) Unregister(ctx context.Context, carrier SessionCarrier) (result UnregisterOutcome, err error) {
	started := time.Now()
	outcome := OutcomeError
	ctx, span := tracer.Start(ctx, "account.unregister")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		recordWorkflow(WorkflowUnregister, outcome, started)
	}()

	acct, err := d.sessions.IsAuthenticated(ctx, carrier)
	if err != nil {
		return 0, dependencyError(MsgUnregisterFailed, oops.Code("ACCOUNT_UNREGISTER_FAILED").
			With("operation", "check authentication").
			Wrap(err))
	}
	if acct == nil {
		outcome = OutcomeUnauthenticated
		return Unauthenticated, nil
	}

	userID := d.cfg.UserIDGetter(acct)
	span.SetAttributes(attribute.String("account.id", userID))

	if err = d.sessions.LogOut(ctx, carrier, acct); err != nil {
		return 0, dependencyError(MsgUnregisterFailed, oops.Code("ACCOUNT_UNREGISTER_FAILED").
			With("operation", "log out").
			With("user_id", userID).
			Wrap(err))
	}

	if err = d.users.Remove(ctx, userID); err != nil {
		return 0, dependencyError(MsgUnregisterFailed, oops.Code("ACCOUNT_UNREGISTER_FAILED").
			With("operation", "remove account").
			With("user_id", userID).
			Wrap(err))
	}

	outcome = OutcomeSuccess
	d.logger.Info("account unregistered", "user_id", userID)
	return Unregistered, nil
}
