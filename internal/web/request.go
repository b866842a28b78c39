// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/holomush/accounts/internal/account"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// MsgMalformedBody is returned for bodies that cannot be decoded.
const MsgMalformedBody = "Malformed request body"

type accountForm struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"` //nolint:gosec // request field, never serialized back
}

// decodeForm reads a JSON or URL-encoded body.
func decodeForm(w http.ResponseWriter, r *http.Request) (accountForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var form accountForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to form parsing
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return accountForm{}, bodyError(err)
		}
		return form, nil
	}

	if err := r.ParseForm(); err != nil {
		return accountForm{}, bodyError(err)
	}
	form.Email = r.PostForm.Get("email")
	form.Username = r.PostForm.Get("username")
	form.Password = r.PostForm.Get("password")
	return form, nil
}

func bodyError(cause error) error {
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(cause, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	return account.NewWorkflowError(status, MsgMalformedBody, cause)
}
