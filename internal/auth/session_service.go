// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/account"
)

// AccountLookup resolves a session's account.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*account.Account, error)
}

// ClientInfo is implemented by carriers that know the client's user agent
// and address. Sessions opened through such carriers record both.
type ClientInfo interface {
	UserAgent() string
	RemoteIP() string
}

// SessionService implements account.SessionService with server-side
// sessions addressed by an opaque bearer token.
type SessionService struct {
	sessions WebSessionRepository
	accounts AccountLookup
	ttl      time.Duration
	userID   account.UserIDGetter
	logger   *slog.Logger
	now      func() time.Time
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionTTL sets the session lifetime. Non-positive values are ignored.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *SessionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionUserID sets how a session's account ID is derived.
func WithSessionUserID(getter account.UserIDGetter) SessionOption {
	return func(s *SessionService) {
		if getter != nil {
			s.userID = getter
		}
	}
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions WebSessionRepository, accounts AccountLookup, opts ...SessionOption) (*SessionService, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_DEPENDENCY_MISSING").Errorf("session repository is required")
	}
	if accounts == nil {
		return nil, oops.Code("SESSION_DEPENDENCY_MISSING").Errorf("account lookup is required")
	}
	s := &SessionService{
		sessions: sessions,
		accounts: accounts,
		ttl:      SessionTokenExpiry,
		userID:   account.ByID,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IsAuthenticated returns the account bound to the carrier's token.
// A missing, unknown or expired token yields (nil, nil).
func (s *SessionService) IsAuthenticated(ctx context.Context, carrier account.SessionCarrier) (*account.Account, error) {
	session, err := s.lookup(ctx, carrier)
	if err != nil || session == nil {
		return nil, err
	}

	acct, err := s.accounts.GetByID(ctx, session.AccountID)
	if errors.Is(err, account.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "get account").
			With("account_id", session.AccountID).
			Wrap(err)
	}

	if err := s.sessions.UpdateLastSeen(ctx, session.ID, s.now()); err != nil {
		s.logger.Warn("failed to update session last seen",
			"session_id", session.ID.String(),
			"error", err)
	}
	return acct, nil
}

// LogOut deletes the carrier's session and clears its token. A session that
// is already gone counts as logged out.
func (s *SessionService) LogOut(ctx context.Context, carrier account.SessionCarrier, acct *account.Account) error {
	session, err := s.lookup(ctx, carrier)
	if err != nil {
		return err
	}
	if session != nil {
		if acct != nil && session.AccountID != s.userID(acct) {
			return oops.Code("SESSION_ACCOUNT_MISMATCH").
				With("session_id", session.ID.String()).
				Errorf("session does not belong to account")
		}
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_LOGOUT_FAILED").
				With("operation", "delete session").
				With("session_id", session.ID.String()).
				Wrap(err)
		}
	}
	carrier.ClearSessionToken()
	return nil
}

// MarkLoggedInAfterAuthentication opens a new session for acct and hands its
// token to the carrier.
func (s *SessionService) MarkLoggedInAfterAuthentication(ctx context.Context, carrier account.SessionCarrier, acct *account.Account) error {
	if acct == nil {
		return oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account is required")
	}

	token, hash, err := GenerateSessionToken()
	if err != nil {
		return oops.Code("SESSION_LOGIN_FAILED").With("operation", "generate session token").Wrap(err)
	}

	var userAgent, ip string
	if info, ok := carrier.(ClientInfo); ok {
		userAgent, ip = info.UserAgent(), info.RemoteIP()
	}

	expiresAt := s.now().Add(s.ttl)
	session, err := NewWebSession(s.userID(acct), hash, userAgent, ip, expiresAt)
	if err != nil {
		return oops.Code("SESSION_LOGIN_FAILED").With("operation", "create web session").Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("account_id", session.AccountID).
			Wrap(err)
	}

	carrier.SetSessionToken(token, expiresAt)
	return nil
}

// RespondUnauthenticated writes the response for a request without a valid
// session.
func (s *SessionService) RespondUnauthenticated(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Cookie realm="accounts"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated"}) //nolint:errcheck // response already committed
}

// lookup returns the live session for the carrier's token, or nil.
// Expired sessions are deleted on sight.
func (s *SessionService) lookup(ctx context.Context, carrier account.SessionCarrier) (*WebSession, error) {
	if carrier == nil {
		return nil, nil
	}
	token := carrier.SessionToken()
	if token == "" {
		return nil, nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		_ = s.sessions.Delete(ctx, session.ID) //nolint:errcheck // Best effort, purge removes it later
		return nil, nil
	}
	return session, nil
}

var _ account.SessionService = (*SessionService)(nil)
