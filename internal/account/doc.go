// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package account orchestrates the account lifecycle.
//
// # Workflows
//
// Three orchestrators sequence the account capabilities:
//   - Registrar - hash, persist, notify, then log the new account in
//   - Deregistrar - log an authenticated account out, then remove it
//   - PasswordResetter - issue a reset token or notify an unknown address
//
// # Capabilities
//
// Orchestrators never hash, store, mail or track sessions themselves. They
// consume CredentialHasher, UserStore, TokenStore, SessionService and Notifier
// implementations passed at construction. Constructors fail fast when a
// capability is nil or the Config is invalid.
//
// Orchestrators hold no mutable state and are safe for concurrent use.
package account
