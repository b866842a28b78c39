// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"log/slog"
	"time"
)

// Account is a persisted user account.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewAccount is the record handed to a UserStore on registration.
// It carries the credential hash only.
type NewAccount struct {
	Email        string
	Username     string
	PasswordHash string
}

// RegistrationInput is the transient registration request.
// Password is cleared by the Registrar once hashing returns.
type RegistrationInput struct {
	Email    string
	Username string
	Password string
}

// LogValue keeps the plaintext password out of structured logs.
func (in RegistrationInput) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", in.Email),
		slog.String("username", in.Username),
	)
}

// CredentialHasher turns a plaintext secret into a storable hash.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
}

// UserStore persists accounts.
type UserStore interface {
	// Add persists a new account and returns it with its ID assigned.
	Add(ctx context.Context, acct NewAccount) (*Account, error)

	// Remove deletes the account with the given ID.
	Remove(ctx context.Context, userID string) error

	// FindByEmail returns the account registered to email, or (nil, nil)
	// when there is none.
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// TokenStore persists password reset tokens.
type TokenStore interface {
	// Add stores a newly issued token.
	Add(ctx context.Context, token *PasswordResetToken) error

	// FindByEmail returns the outstanding tokens issued to email.
	FindByEmail(ctx context.Context, email string) ([]*PasswordResetToken, error)

	// RemoveByEmail deletes every token issued to email.
	RemoveByEmail(ctx context.Context, email string) error
}

// SessionCarrier is the per-request handle a SessionService reads and writes
// the session credential through.
type SessionCarrier interface {
	SessionToken() string
	SetSessionToken(token string, expiresAt time.Time)
	ClearSessionToken()
}

// SessionService tracks authenticated sessions.
type SessionService interface {
	// IsAuthenticated returns the account bound to the carrier's session, or
	// (nil, nil) when the carrier holds no valid session.
	IsAuthenticated(ctx context.Context, carrier SessionCarrier) (*Account, error)

	// LogOut ends the carrier's session.
	LogOut(ctx context.Context, carrier SessionCarrier, acct *Account) error

	// MarkLoggedInAfterAuthentication opens a session for acct on the carrier.
	MarkLoggedInAfterAuthentication(ctx context.Context, carrier SessionCarrier, acct *Account) error
}

// Notifier delivers account emails.
type Notifier interface {
	SendRegistrationEmail(ctx context.Context, acct *Account) error
	SendPasswordResetEmail(ctx context.Context, acct *Account, token string) error
	SendPasswordResetNotificationForUnregisteredEmail(ctx context.Context, email string) error
}

// ByID is the UserIDGetter for accounts whose ID field is the user ID.
func ByID(acct *Account) string {
	return acct.ID
}
