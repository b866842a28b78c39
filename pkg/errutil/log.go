// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

type statusCoder interface {
	StatusCode() int
}

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// If any error in the chain carries a StatusCode, it is logged as "status".
// Extra key/value pairs in attrs are appended.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	fields := make([]any, 0, 8+len(attrs))
	if oopsErr, ok := oops.AsOops(err); ok {
		fields = append(fields, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, "context", ctx)
		}
	} else {
		fields = append(fields, "error", err)
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		fields = append(fields, "status", sc.StatusCode())
	}
	logger.Error(msg, append(fields, attrs...)...)
}
