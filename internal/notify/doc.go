// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify renders and delivers account emails.
//
// Mailer implements account.Notifier. It renders messages from embedded
// text templates and hands them to a Transport: SMTPTransport for real
// delivery, LogTransport for development.
package notify
