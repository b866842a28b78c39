// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/internal/web"
	"github.com/holomush/accounts/pkg/errutil"
)

type mockRegistrar struct{ mock.Mock }

func (m *mockRegistrar) Register(ctx context.Context, carrier account.SessionCarrier, in *account.RegistrationInput) (*account.Account, error) {
	args := m.Called(ctx, carrier, in)
	acct, _ := args.Get(0).(*account.Account)
	return acct, args.Error(1)
}

type mockDeregistrar struct{ mock.Mock }

func (m *mockDeregistrar) Unregister(ctx context.Context, carrier account.SessionCarrier) (account.UnregisterOutcome, error) {
	args := m.Called(ctx, carrier)
	return args.Get(0).(account.UnregisterOutcome), args.Error(1)
}

type mockResetter struct{ mock.Mock }

func (m *mockResetter) RequestPasswordReset(ctx context.Context, email string) (account.ResetOutcome, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(account.ResetOutcome), args.Error(1)
}

type stubResponder struct{ calls int }

func (s *stubResponder) RespondUnauthenticated(w http.ResponseWriter, _ *http.Request) {
	s.calls++
	w.WriteHeader(http.StatusUnauthorized)
}

type fixture struct {
	handler     *web.Handler
	registrar   *mockRegistrar
	deregistrar *mockDeregistrar
	resetter    *mockResetter
	responder   *stubResponder
	metrics     *observability.Metrics
}

func newFixture(t *testing.T, overrides web.Responses) *fixture {
	t.Helper()
	f := &fixture{
		registrar:   &mockRegistrar{},
		deregistrar: &mockDeregistrar{},
		resetter:    &mockResetter{},
		responder:   &stubResponder{},
		metrics:     observability.NewMetrics(prometheus.NewRegistry()),
	}
	h, err := web.NewHandler(web.HandlerConfig{
		Registrar:       f.registrar,
		Deregistrar:     f.deregistrar,
		Resetter:        f.resetter,
		Unauthenticated: f.responder,
		Responses:       overrides,
		Metrics:         f.metrics,
	})
	require.NoError(t, err)
	f.handler = h
	return f
}

func postForm(h http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_RequiresCollaborators(t *testing.T) {
	_, err := web.NewHandler(web.HandlerConfig{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "WEB_DEPENDENCY_MISSING")
	errutil.AssertErrorContext(t, err, "dependency", "registrar")
}

func TestRegister(t *testing.T) {
	t.Run("registers from form body", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		acct := &account.Account{ID: "01HACCOUNT", Email: "a@example.com"}
		f.registrar.On("Register", mock.Anything, mock.Anything, mock.MatchedBy(func(in *account.RegistrationInput) bool {
			return in.Email == "a@example.com" && in.Username == "alice" && in.Password == "pw"
		})).Return(acct, nil).Once()

		rec := postForm(f.handler, "/register", url.Values{
			"email": {"a@example.com"}, "username": {"alice"}, "password": {"pw"},
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `"01HACCOUNT"`, rec.Body.String())
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("register", "201")), 0)
		f.registrar.AssertExpectations(t)
	})

	t.Run("registers from JSON body", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.registrar.On("Register", mock.Anything, mock.Anything, mock.Anything).
			Return(&account.Account{ID: "id-2"}, nil).Once()

		rec := postJSON(f.handler, "/register", `{"email":"b@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("validation errors skip the workflow", func(t *testing.T) {
		f := newFixture(t, web.Responses{})

		rec := postForm(f.handler, "/register", url.Values{"email": {"nope"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"email":"Valid email address required","password":"Password required"}`, rec.Body.String())
		f.registrar.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate email maps to conflict", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.registrar.On("Register", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, account.NewWorkflowError(http.StatusConflict, "Email address already registered", account.ErrEmailTaken)).Once()

		rec := postJSON(f.handler, "/register", `{"email":"a@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Email address already registered", rec.Body.String())
	})

	t.Run("unexpected error hides details", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.registrar.On("Register", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: connection refused")).Once()

		rec := postJSON(f.handler, "/register", `{"email":"a@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", rec.Body.String())
	})

	t.Run("malformed JSON", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		rec := postJSON(f.handler, "/register", `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, web.MsgMalformedBody, rec.Body.String())
	})

	t.Run("oversized body", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		rec := postJSON(f.handler, "/register", `{"email":"`+strings.Repeat("a", 70<<10)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/register", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestUnregister(t *testing.T) {
	t.Run("unregistered", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.deregistrar.On("Unregister", mock.Anything, mock.Anything).Return(account.Unregistered, nil).Once()

		rec := postForm(f.handler, "/unregister", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, f.responder.calls)
	})

	t.Run("unauthenticated delegates to the session service", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.deregistrar.On("Unregister", mock.Anything, mock.Anything).Return(account.Unauthenticated, nil).Once()

		rec := postForm(f.handler, "/unregister", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, 1, f.responder.calls)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.deregistrar.On("Unregister", mock.Anything, mock.Anything).
			Return(account.UnregisterOutcome(0), account.NewWorkflowError(http.StatusInternalServerError, account.MsgUnregisterFailed, errors.New("db"))).Once()

		rec := postForm(f.handler, "/unregister", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, account.MsgUnregisterFailed, rec.Body.String())
	})
}

func TestForgotPassword(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.resetter.On("RequestPasswordReset", mock.Anything, "a@example.com").
			Return(account.ResetOutcome{Email: "a@example.com"}, nil).Once()

		rec := postForm(f.handler, "/forgotpassword", url.Values{"email": {"a@example.com"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Password reset email sent to: a@example.com", rec.Body.String())
	})

	t.Run("validation error", func(t *testing.T) {
		f := newFixture(t, web.Responses{})

		rec := postJSON(f.handler, "/forgotpassword", `{"email":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"email":"Valid email address required"}`, rec.Body.String())
		f.resetter.AssertNotCalled(t, "RequestPasswordReset", mock.Anything, mock.Anything)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t, web.Responses{})
		f.resetter.On("RequestPasswordReset", mock.Anything, "a@example.com").
			Return(account.ResetOutcome{}, errors.New("smtp down")).Once()

		rec := postForm(f.handler, "/forgotpassword", url.Values{"email": {"a@example.com"}})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_ResponseOverrides(t *testing.T) {
	f := newFixture(t, web.Responses{
		PasswordResetEmailSent: func(w http.ResponseWriter, _ *http.Request, _ string) {
			w.WriteHeader(http.StatusAccepted)
		},
	})
	f.resetter.On("RequestPasswordReset", mock.Anything, "a@example.com").
		Return(account.ResetOutcome{Email: "a@example.com"}, nil).Once()
	f.deregistrar.On("Unregister", mock.Anything, mock.Anything).Return(account.Unregistered, nil).Once()

	rec := postForm(f.handler, "/forgotpassword", url.Values{"email": {"a@example.com"}})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = postForm(f.handler, "/unregister", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "non-overridden handlers keep their defaults")
}
