// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"net/mail"
	"strings"
)

const maxEmailLength = 254

// ValidEmail reports whether s is a single bare email address.
func ValidEmail(s string) bool {
	if s == "" || len(s) > maxEmailLength || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// Reject display-name forms such as "Bob <bob@example.com>".
	return addr.Address == s && addr.Name == ""
}

// ValidateRegistration returns the field errors for a registration request,
// or nil if there are none.
func ValidateRegistration(in *RegistrationInput) FieldErrors {
	errs := FieldErrors{}
	if in == nil || !ValidEmail(in.Email) {
		errs["email"] = MsgValidEmailRequired
	}
	if in == nil || in.Password == "" {
		errs["password"] = MsgPasswordRequired
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidatePasswordResetRequest returns the field errors for a reset request,
// or nil if there are none.
func ValidatePasswordResetRequest(email string) FieldErrors {
	if !ValidEmail(email) {
		return FieldErrors{"email": MsgValidEmailRequired}
	}
	return nil
}
