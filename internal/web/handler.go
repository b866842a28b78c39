// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/observability"
)

// Request types used as metric labels.
const (
	RequestRegister       = "register"
	RequestUnregister     = "unregister"
	RequestForgotPassword = "forgotpassword"
)

// Registrar registers accounts.
type Registrar interface {
	Register(ctx context.Context, carrier account.SessionCarrier, in *account.RegistrationInput) (*account.Account, error)
}

// Deregistrar removes the authenticated account.
type Deregistrar interface {
	Unregister(ctx context.Context, carrier account.SessionCarrier) (account.UnregisterOutcome, error)
}

// PasswordResetter issues password reset tokens.
type PasswordResetter interface {
	RequestPasswordReset(ctx context.Context, email string) (account.ResetOutcome, error)
}

// UnauthenticatedResponder writes the response for requests that need a
// session and have none.
type UnauthenticatedResponder interface {
	RespondUnauthenticated(w http.ResponseWriter, r *http.Request)
}

// CarrierFunc binds a session carrier to a request.
type CarrierFunc func(w http.ResponseWriter, r *http.Request) account.SessionCarrier

// CookieCarriers returns a CarrierFunc that uses auth.CookieCarrier.
func CookieCarriers(cfg auth.CookieConfig) CarrierFunc {
	return func(w http.ResponseWriter, r *http.Request) account.SessionCarrier {
		return auth.NewCookieCarrier(w, r, cfg)
	}
}

// HandlerConfig holds the collaborators of a Handler.
type HandlerConfig struct {
	Registrar       Registrar
	Deregistrar     Deregistrar
	Resetter        PasswordResetter
	Unauthenticated UnauthenticatedResponder
	// Responses overrides individual default responses.
	Responses Responses
	// UserIDGetter feeds the default Registered response.
	UserIDGetter account.UserIDGetter
	Carriers     CarrierFunc
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Handler serves the account endpoints.
type Handler struct {
	registrar       Registrar
	deregistrar     Deregistrar
	resetter        PasswordResetter
	unauthenticated UnauthenticatedResponder
	responses       Responses
	carriers        CarrierFunc
	metrics         *observability.Metrics
	logger          *slog.Logger
	mux             *http.ServeMux
}

// NewHandler creates a Handler. Every collaborator is required; response
// overrides are merged over DefaultResponses.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	switch {
	case cfg.Registrar == nil:
		return nil, missing("registrar")
	case cfg.Deregistrar == nil:
		return nil, missing("deregistrar")
	case cfg.Resetter == nil:
		return nil, missing("password resetter")
	case cfg.Unauthenticated == nil:
		return nil, missing("unauthenticated responder")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	responses := DefaultResponses(cfg.UserIDGetter, logger).Merge(cfg.Responses)
	if err := responses.Validate(); err != nil {
		return nil, err
	}
	carriers := cfg.Carriers
	if carriers == nil {
		carriers = CookieCarriers(auth.CookieConfig{})
	}

	h := &Handler{
		registrar:       cfg.Registrar,
		deregistrar:     cfg.Deregistrar,
		resetter:        cfg.Resetter,
		unauthenticated: cfg.Unauthenticated,
		responses:       responses,
		carriers:        carriers,
		metrics:         cfg.Metrics,
		logger:          logger,
		mux:             http.NewServeMux(),
	}
	h.route("POST /register", RequestRegister, h.handleRegister)
	h.route("POST /unregister", RequestUnregister, h.handleUnregister)
	h.route("POST /forgotpassword", RequestForgotPassword, h.handleForgotPassword)
	return h, nil
}

func missing(name string) error {
	return oops.Code("WEB_DEPENDENCY_MISSING").
		With("dependency", name).
		Errorf("%s is required", name)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// route registers fn under pattern with tracing and request metrics.
func (h *Handler) route(pattern, requestType string, fn http.HandlerFunc) {
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(fn, w, r)
		h.metrics.ObserveRequest(requestType, m.Code, m.Duration)
		h.logger.DebugContext(r.Context(), "request handled",
			"type", requestType,
			"status", m.Code,
			"duration", m.Duration)
	})
	h.mux.Handle(pattern, otelhttp.WithRouteTag(pattern, counted))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		h.responses.Failure(w, r, err)
		return
	}

	in := &account.RegistrationInput{
		Email:    form.Email,
		Username: form.Username,
		Password: form.Password,
	}
	if fields := account.ValidateRegistration(in); fields != nil {
		h.responses.RegistrationValidationErrors(w, r, fields)
		return
	}

	acct, err := h.registrar.Register(r.Context(), h.carriers(w, r), in)
	if err != nil {
		h.responses.Failure(w, r, err)
		return
	}
	h.responses.Registered(w, r, acct)
}

func (h *Handler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.deregistrar.Unregister(r.Context(), h.carriers(w, r))
	if err != nil {
		h.responses.Failure(w, r, err)
		return
	}
	if outcome == account.Unauthenticated {
		h.unauthenticated.RespondUnauthenticated(w, r)
		return
	}
	h.responses.Unregistered(w, r)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		h.responses.Failure(w, r, err)
		return
	}

	if fields := account.ValidatePasswordResetRequest(form.Email); fields != nil {
		h.responses.RequestPasswordResetValidationErrors(w, r, fields)
		return
	}

	outcome, err := h.resetter.RequestPasswordReset(r.Context(), form.Email)
	if err != nil {
		h.responses.Failure(w, r, err)
		return
	}
	h.responses.PasswordResetEmailSent(w, r, outcome.Email)
}

// Instrument wraps h in an OpenTelemetry server span per request.
func Instrument(h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, "accounts")
}
