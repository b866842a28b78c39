// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/holomush/accounts/pkg/errutil"
)

var tracer = otel.Tracer("accounts/account")

// Registrar registers new accounts.
type Registrar struct {
	hasher   CredentialHasher
	users    UserStore
	sessions SessionService
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(
	hasher CredentialHasher,
	users UserStore,
	sessions SessionService,
	notifier Notifier,
	cfg Config,
	opts ...Option,
) (*Registrar, error) {
	switch {
	case hasher == nil:
		return nil, missingDependency("credential hasher")
	case users == nil:
		return nil, missingDependency("user store")
	case sessions == nil:
		return nil, missingDependency("session service")
	case notifier == nil:
		return nil, missingDependency("notifier")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Registrar{
		hasher:   hasher,
		users:    users,
		sessions: sessions,
		notifier: notifier,
		cfg:      cfg,
		logger:   o.logger,
	}, nil
}

// Register creates an account from in and logs it in on carrier.
//
// in.Password is cleared once hashing returns. A failed registration email is
// logged and ignored. A failed login after the account is stored returns a
// WorkflowError; the account remains persisted.
func (r *Registrar) Register(ctx context.Context, carrier SessionCarrier, in *RegistrationInput) (acct *Account, err error) {
	started := time.Now()
	outcome := OutcomeError
	ctx, span := tracer.Start(ctx, "account.register")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		recordWorkflow(WorkflowRegister, outcome, started)
	}()

	if in == nil || in.Email == "" || in.Password == "" {
		outcome = OutcomeInvalid
		return nil, validationError(MsgMissingCredentials, nil)
	}

	username := in.Username
	if username == "" {
		username = in.Email
	}

	hash, hashErr := r.hasher.Hash(in.Password)
	in.Password = ""
	if hashErr != nil {
		hashErr = oops.Code("ACCOUNT_HASH_FAILED").
			With("operation", "hash password").
			With("email", in.Email).
			Wrap(hashErr)
		errutil.LogError(r.logger, "registration failed", hashErr)
		return nil, serverError(MsgRegisterFailed, hashErr)
	}

	acct, err = r.users.Add(ctx, NewAccount{
		Email:        in.Email,
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		err = oops.Code("ACCOUNT_PERSIST_FAILED").
			With("operation", "add account").
			With("email", in.Email).
			Wrap(err)
		errutil.LogError(r.logger, "registration failed", err)
		return nil, dependencyError(MsgRegisterFailed, err)
	}

	userID := r.cfg.UserIDGetter(acct)
	span.SetAttributes(attribute.String("account.id", userID))

	if notifyErr := r.notifier.SendRegistrationEmail(ctx, acct); notifyErr != nil {
		NotificationFailures.WithLabelValues("registration").Inc()
		errutil.LogError(r.logger, "registration email failed", notifyErr, "user_id", userID)
	}

	if err = r.sessions.MarkLoggedInAfterAuthentication(ctx, carrier, acct); err != nil {
		outcome = OutcomePartial
		err = oops.Code("ACCOUNT_LOGIN_AFTER_REGISTER_FAILED").
			With("operation", "mark logged in").
			With("user_id", userID).
			Wrap(err)
		errutil.LogError(r.logger, "login after registration failed", err, "user_id", userID)
		return nil, serverError(MsgLoginAfterRegister, err)
	}

	outcome = OutcomeSuccess
	r.logger.Info("account registered", "user_id", userID)
	return acct, nil
}

func missingDependency(name string) error {
	return oops.Code("ACCOUNT_DEPENDENCY_MISSING").
		With("dependency", name).
		Errorf("%s is required", name)
}
