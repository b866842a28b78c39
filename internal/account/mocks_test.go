// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/accounts/internal/account"
)

type mockHasher struct{ mock.Mock }

func (m *mockHasher) Hash(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Add(ctx context.Context, acct account.NewAccount) (*account.Account, error) {
	args := m.Called(ctx, acct)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (m *mockUserStore) Remove(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Add(ctx context.Context, token *account.PasswordResetToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenStore) FindByEmail(ctx context.Context, email string) ([]*account.PasswordResetToken, error) {
	args := m.Called(ctx, email)
	tokens, _ := args.Get(0).([]*account.PasswordResetToken)
	return tokens, args.Error(1)
}

func (m *mockTokenStore) RemoveByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) IsAuthenticated(ctx context.Context, carrier account.SessionCarrier) (*account.Account, error) {
	args := m.Called(ctx, carrier)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (m *mockSessions) LogOut(ctx context.Context, carrier account.SessionCarrier, acct *account.Account) error {
	return m.Called(ctx, carrier, acct).Error(0)
}

func (m *mockSessions) MarkLoggedInAfterAuthentication(ctx context.Context, carrier account.SessionCarrier, acct *account.Account) error {
	return m.Called(ctx, carrier, acct).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendRegistrationEmail(ctx context.Context, acct *account.Account) error {
	return m.Called(ctx, acct).Error(0)
}

func (m *mockNotifier) SendPasswordResetEmail(ctx context.Context, acct *account.Account, token string) error {
	return m.Called(ctx, acct, token).Error(0)
}

func (m *mockNotifier) SendPasswordResetNotificationForUnregisteredEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

// fakeCarrier is an in-memory SessionCarrier.
type fakeCarrier struct {
	token     string
	expiresAt time.Time
}

func (c *fakeCarrier) SessionToken() string { return c.token }

func (c *fakeCarrier) SetSessionToken(token string, expiresAt time.Time) {
	c.token = token
	c.expiresAt = expiresAt
}

func (c *fakeCarrier) ClearSessionToken() {
	c.token = ""
	c.expiresAt = time.Time{}
}

func testConfig() account.Config {
	return account.Config{UserIDGetter: account.ByID}
}
