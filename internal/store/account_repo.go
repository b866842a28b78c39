// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/account"
)

// AccountRepository implements account.UserStore using PostgreSQL.
type AccountRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool, now: time.Now}
}

// Add inserts a new account with a fresh ULID. Emails are unique regardless
// of case; a duplicate returns an error wrapping account.ErrEmailTaken.
func (r *AccountRepository) Add(ctx context.Context, in account.NewAccount) (*account.Account, error) {
	if in.PasswordHash == "" {
		return nil, oops.Code("STORE_ACCOUNT_INVALID").
			With("email", in.Email).
			Errorf("password hash cannot be empty")
	}

	acct := &account.Account{
		ID:           ulid.Make().String(),
		Email:        strings.TrimSpace(in.Email),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		CreatedAt:    r.now().UTC().Truncate(time.Microsecond),
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, acct.ID, acct.Email, acct.Username, acct.PasswordHash, acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("STORE_ACCOUNT_EXISTS").
				With("email", acct.Email).
				With("constraint", pgErr.ConstraintName).
				Wrap(account.ErrEmailTaken)
		}
		return nil, oops.Code("STORE_ACCOUNT_ADD_FAILED").
			With("operation", "insert account").
			With("email", acct.Email).
			Wrap(err)
	}
	return acct, nil
}

// Remove deletes an account. Its sessions go with it.
func (r *AccountRepository) Remove(ctx context.Context, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, userID)
	if err != nil {
		return oops.Code("STORE_ACCOUNT_REMOVE_FAILED").
			With("operation", "delete account").
			With("user_id", userID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("STORE_ACCOUNT_NOT_FOUND").
			With("user_id", userID).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// FindByEmail returns the account for email, matched case-insensitively,
// or (nil, nil) if there is none.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, strings.TrimSpace(email))

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("STORE_ACCOUNT_FIND_FAILED").
			With("operation", "find account by email").
			With("email", email).
			Wrap(err)
	}
	return acct, nil
}

// GetByID returns the account with the given ID.
// Returns an error wrapping account.ErrNotFound if there is none.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM accounts
		WHERE id = $1
	`, id)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("STORE_ACCOUNT_NOT_FOUND").
			With("user_id", id).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("STORE_ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("user_id", id).
			Wrap(err)
	}
	return acct, nil
}

// scanAccount scans a single row into an Account.
// pgx.ErrNoRows is returned unchanged.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var acct account.Account
	if err := row.Scan(&acct.ID, &acct.Email, &acct.Username, &acct.PasswordHash, &acct.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	return &acct, nil
}

var _ account.UserStore = (*AccountRepository)(nil)
