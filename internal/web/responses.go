// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/pkg/errutil"
)

// Responses writes the HTTP response for each workflow outcome.
type Responses struct {
	Registered                           func(w http.ResponseWriter, r *http.Request, acct *account.Account)
	RegistrationValidationErrors         func(w http.ResponseWriter, r *http.Request, fields account.FieldErrors)
	Unregistered                         func(w http.ResponseWriter, r *http.Request)
	RequestPasswordResetValidationErrors func(w http.ResponseWriter, r *http.Request, fields account.FieldErrors)
	PasswordResetEmailSent               func(w http.ResponseWriter, r *http.Request, email string)
	Failure                              func(w http.ResponseWriter, r *http.Request, err error)
}

// DefaultResponses returns the standard responses. userID derives the ID
// returned after registration; logger receives unexpected failures.
func DefaultResponses(userID account.UserIDGetter, logger *slog.Logger) Responses {
	if userID == nil {
		userID = account.ByID
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Responses{
		Registered: func(w http.ResponseWriter, _ *http.Request, acct *account.Account) {
			writeJSON(w, http.StatusCreated, userID(acct))
		},
		RegistrationValidationErrors: func(w http.ResponseWriter, _ *http.Request, fields account.FieldErrors) {
			writeJSON(w, http.StatusBadRequest, fields)
		},
		Unregistered: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		RequestPasswordResetValidationErrors: func(w http.ResponseWriter, _ *http.Request, fields account.FieldErrors) {
			writeJSON(w, http.StatusBadRequest, fields)
		},
		PasswordResetEmailSent: func(w http.ResponseWriter, _ *http.Request, email string) {
			writeText(w, http.StatusOK, "Password reset email sent to: "+email)
		},
		Failure: func(w http.ResponseWriter, r *http.Request, err error) {
			we, ok := account.AsWorkflowError(err)
			if !ok || we.StatusCode >= http.StatusInternalServerError {
				errutil.LogError(logger, "request failed", err, "path", r.URL.Path)
			}
			switch {
			case !ok:
				writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			case len(we.Fields) > 0:
				writeJSON(w, we.StatusCode, we.Fields)
			default:
				writeText(w, we.StatusCode, we.Message)
			}
		},
	}
}

// Merge returns r with every non-nil handler of overrides replacing its own.
func (r Responses) Merge(overrides Responses) Responses {
	if overrides.Registered != nil {
		r.Registered = overrides.Registered
	}
	if overrides.RegistrationValidationErrors != nil {
		r.RegistrationValidationErrors = overrides.RegistrationValidationErrors
	}
	if overrides.Unregistered != nil {
		r.Unregistered = overrides.Unregistered
	}
	if overrides.RequestPasswordResetValidationErrors != nil {
		r.RequestPasswordResetValidationErrors = overrides.RequestPasswordResetValidationErrors
	}
	if overrides.PasswordResetEmailSent != nil {
		r.PasswordResetEmailSent = overrides.PasswordResetEmailSent
	}
	if overrides.Failure != nil {
		r.Failure = overrides.Failure
	}
	return r
}

// Validate returns an error naming the first missing handler.
func (r Responses) Validate() error {
	handlers := []struct {
		name string
		set  bool
	}{
		{"Registered", r.Registered != nil},
		{"RegistrationValidationErrors", r.RegistrationValidationErrors != nil},
		{"Unregistered", r.Unregistered != nil},
		{"RequestPasswordResetValidationErrors", r.RequestPasswordResetValidationErrors != nil},
		{"PasswordResetEmailSent", r.PasswordResetEmailSent != nil},
		{"Failure", r.Failure != nil},
	}
	for _, h := range handlers {
		if !h.set {
			return oops.Code("WEB_RESPONSES_INVALID").
				With("handler", h.name).
				Errorf("response handler %s is required", h.name)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg)) //nolint:errcheck // response already committed
}
