// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "github.com/holomush/accounts/internal/account"

// ErrNotFound is returned when a requested entity does not exist. It is the
// same sentinel the account package uses, so callers can test either.
var ErrNotFound = account.ErrNotFound
