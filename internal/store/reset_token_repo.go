// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/account"
)

// HashResetToken returns the SHA-256 hex digest under which a reset token is
// stored. Plaintext tokens are never persisted.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// ResetTokenRepository implements account.TokenStore using PostgreSQL.
//
// Tokens are keyed by HashResetToken; tokens read back carry that hash in
// their Token field.
type ResetTokenRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(pool poolIface) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool, now: time.Now}
}

// Add stores a newly issued token.
func (r *ResetTokenRepository) Add(ctx context.Context, token *account.PasswordResetToken) error {
	if token == nil || token.Token == "" {
		return oops.Code("STORE_RESET_TOKEN_INVALID").Errorf("token cannot be empty")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token_hash, email, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, HashResetToken(token.Token), strings.TrimSpace(token.Email), token.IssuedAt, token.ExpiresAt)
	if err != nil {
		return oops.Code("STORE_RESET_TOKEN_ADD_FAILED").
			With("operation", "insert reset token").
			With("email", token.Email).
			Wrap(err)
	}
	return nil
}

// FindByEmail returns the unexpired tokens issued to email, newest first.
func (r *ResetTokenRepository) FindByEmail(ctx context.Context, email string) ([]*account.PasswordResetToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT token_hash, email, issued_at, expires_at
		FROM password_reset_tokens
		WHERE LOWER(email) = LOWER($1) AND expires_at > $2
		ORDER BY issued_at DESC
	`, strings.TrimSpace(email), r.now())
	if err != nil {
		return nil, oops.Code("STORE_RESET_TOKEN_FIND_FAILED").
			With("operation", "find reset tokens by email").
			With("email", email).
			Wrap(err)
	}
	defer rows.Close()

	var tokens []*account.PasswordResetToken
	for rows.Next() {
		var t account.PasswordResetToken
		if err := rows.Scan(&t.Token, &t.Email, &t.IssuedAt, &t.ExpiresAt); err != nil {
			return nil, oops.Code("STORE_RESET_TOKEN_SCAN_FAILED").
				With("operation", "scan reset token row").
				Wrap(err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_RESET_TOKEN_ROWS_ERROR").
			With("operation", "iterate reset token rows").
			Wrap(err)
	}
	return tokens, nil
}

// RemoveByEmail deletes every token issued to email. Having none is not an error.
func (r *ResetTokenRepository) RemoveByEmail(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE LOWER(email) = LOWER($1)
	`, strings.TrimSpace(email))
	if err != nil {
		return oops.Code("STORE_RESET_TOKEN_REMOVE_FAILED").
			With("operation", "delete reset tokens by email").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired tokens and returns how many were deleted.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at <= $1
	`, r.now())
	if err != nil {
		return 0, oops.Code("STORE_RESET_TOKEN_PURGE_FAILED").
			With("operation", "delete expired reset tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ account.TokenStore = (*ResetTokenRepository)(nil)
