// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// LogTransport writes messages to a logger instead of delivering them.
// Message secrets are replaced before the body is logged.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport. A nil logger uses slog.Default.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Send implements Transport.
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	t.logger.InfoContext(ctx, "email",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject)
	t.logger.DebugContext(ctx, "email body",
		"kind", msg.Kind,
		"body", redact(msg.Body, msg.Secrets))
	return nil
}

func redact(body string, secrets []string) string {
	for _, s := range secrets {
		if s != "" {
			body = strings.ReplaceAll(body, s, redacted)
		}
	}
	return body
}
