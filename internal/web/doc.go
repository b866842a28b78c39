// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account workflows over HTTP.
//
// Handler serves POST /register, POST /unregister and POST /forgotpassword.
// Request bodies may be JSON or URL-encoded forms. The response written for
// each outcome is chosen by a Responses value, which callers may partially
// override.
package web
