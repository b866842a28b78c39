// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/pkg/errutil"
)

var accountColumns = []string{"id", "email", "username", "password_hash", "created_at"}

func TestAccountRepository_Add(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		in        account.NewAccount
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   bool
		wantCode  string
		wantIs    error
	}{
		{
			name: "inserts account",
			in:   account.NewAccount{Email: "a@example.com", Username: "a@example.com", PasswordHash: "HASH"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), "a@example.com", "a@example.com", "HASH", fixed).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			in:   account.NewAccount{Email: "a@example.com", Username: "a", PasswordHash: "HASH"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), "a@example.com", "a", "HASH", fixed).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_unique"})
			},
			wantErr:  true,
			wantCode: "STORE_ACCOUNT_EXISTS",
			wantIs:   account.ErrEmailTaken,
		},
		{
			name: "database error",
			in:   account.NewAccount{Email: "a@example.com", Username: "a", PasswordHash: "HASH"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr:  true,
			wantCode: "STORE_ACCOUNT_ADD_FAILED",
		},
		{
			name:      "empty hash rejected before insert",
			in:        account.NewAccount{Email: "a@example.com"},
			setupMock: func(pgxmock.PgxPoolIface) {},
			wantErr:   true,
			wantCode:  "STORE_ACCOUNT_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewAccountRepository(mock)
			repo.now = func() time.Time { return fixed }

			got, err := repo.Add(context.Background(), tt.in)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantIs != nil {
					require.ErrorIs(t, err, tt.wantIs)
				}
			} else {
				require.NoError(t, err)
				_, parseErr := ulid.Parse(got.ID)
				require.NoError(t, parseErr)
				assert.Equal(t, tt.in.Email, got.Email)
				assert.Equal(t, tt.in.PasswordHash, got.PasswordHash)
				assert.Equal(t, fixed, got.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestAccountRepository_DuplicateEmailMapsToConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO accounts`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err = NewAccountRepository(mock).Add(context.Background(), account.NewAccount{Email: "a@example.com", PasswordHash: "H"})
	var sc account.StatusCoder
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, http.StatusConflict, sc.StatusCode())
}

func TestAccountRepository_Remove(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
	}{
		{
			name: "removes account",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM accounts`).
					WithArgs("acct-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
		{
			name: "missing account",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM accounts`).
					WithArgs("acct-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			wantCode: "STORE_ACCOUNT_NOT_FOUND",
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM accounts`).
					WithArgs("acct-1").
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: "STORE_ACCOUNT_REMOVE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			err = NewAccountRepository(mock).Remove(context.Background(), "acct-1")
			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email, username, password_hash, created_at`).
			WithArgs("A@Example.com").
			WillReturnRows(pgxmock.NewRows(accountColumns).
				AddRow("acct-1", "a@example.com", "alice", "HASH", created))

		acct, err := NewAccountRepository(mock).FindByEmail(context.Background(), "A@Example.com")
		require.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, "acct-1", acct.ID)
		assert.Equal(t, "alice", acct.Username)
		assert.Equal(t, created, acct.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent returns nil without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email, username, password_hash, created_at`).
			WithArgs("ghost@example.com").
			WillReturnRows(pgxmock.NewRows(accountColumns))

		acct, err := NewAccountRepository(mock).FindByEmail(context.Background(), "ghost@example.com")
		require.NoError(t, err)
		assert.Nil(t, acct)
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email`).WillReturnError(errors.New("timeout"))

		_, err = NewAccountRepository(mock).FindByEmail(context.Background(), "a@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "STORE_ACCOUNT_FIND_FAILED")
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, email`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(accountColumns))

	_, err = NewAccountRepository(mock).GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, account.ErrNotFound)
	errutil.AssertErrorCode(t, err, "STORE_ACCOUNT_NOT_FOUND")
}
