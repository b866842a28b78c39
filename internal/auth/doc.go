// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides credential hashing and web sessions for accounts.
//
// Argon2idHasher implements account.CredentialHasher. SessionService
// implements account.SessionService on top of a WebSessionRepository, with
// CookieCarrier moving the session token between HTTP requests and
// responses.
//
// Session tokens are 32 random bytes, hex encoded. Only the SHA256 hash of a
// token is persisted; the plaintext exists in the client's cookie alone.
package auth
