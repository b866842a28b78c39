// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// PasswordResetToken is an issued password reset credential.
type PasswordResetToken struct {
	Email     string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewPasswordResetToken issues a random token for email valid for ttl from now.
func NewPasswordResetToken(email string, now time.Time, ttl time.Duration) (*PasswordResetToken, error) {
	if email == "" {
		return nil, oops.Code("RESET_TOKEN_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("RESET_TOKEN_INVALID_TTL").With("ttl", ttl).Errorf("ttl must be positive")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, oops.Code("RESET_TOKEN_GENERATE_FAILED").
			With("operation", "uuid.NewRandom").
			Wrap(err)
	}

	return &PasswordResetToken{
		Email:     email,
		Token:     id.String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpiredAt returns true if the token would be expired at the given time.
func (t *PasswordResetToken) IsExpiredAt(at time.Time) bool {
	return !at.Before(t.ExpiresAt)
}
