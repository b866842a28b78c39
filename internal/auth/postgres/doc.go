// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres persists web sessions in PostgreSQL.
package postgres
