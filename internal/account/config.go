// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"time"

	"github.com/samber/oops"
)

// DefaultTokenTTLMinutes is the reset token lifetime when none is configured.
const DefaultTokenTTLMinutes = 60

// UserIDGetter extracts the stable user ID from an account.
type UserIDGetter func(*Account) string

// Config is shared by all orchestrators. It is copied at construction.
type Config struct {
	// TokenTTLMinutes is the password reset token lifetime. Zero selects
	// DefaultTokenTTLMinutes.
	TokenTTLMinutes int

	// UserIDGetter is required.
	UserIDGetter UserIDGetter

	// InvalidatePriorTokens removes outstanding reset tokens for an email
	// before a new one is issued.
	InvalidatePriorTokens bool
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TokenTTLMinutes < 0 {
		return oops.Code("ACCOUNT_CONFIG_INVALID").
			With("token_ttl_minutes", c.TokenTTLMinutes).
			Errorf("token TTL must be positive")
	}
	if c.UserIDGetter == nil {
		return oops.Code("ACCOUNT_CONFIG_INVALID").Errorf("user ID getter is required")
	}
	return nil
}

// TokenTTL returns the reset token lifetime.
func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes == 0 {
		return DefaultTokenTTLMinutes * time.Minute
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
