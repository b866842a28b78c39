// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/notify"
	"github.com/holomush/accounts/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory connects to PostgreSQL.
	// Default: store.Connect with store.DefaultConnectOptions
	PoolFactory func(ctx context.Context, url string) (Pool, error)

	// MigratorFactory creates a migrator for --auto-migrate.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// RedisFactory creates the client for the redis token backend.
	// Default: redis.NewClient
	RedisFactory func(cfg config.RedisConfig) redis.UniversalClient

	// TransportFactory creates the mail transport.
	// Default: notify.NewLogTransport or notify.NewSMTPTransport by mail.backend
	TransportFactory func(cfg config.MailConfig, logger *slog.Logger) (notify.Transport, error)

	// HTTPServerFactory creates the account endpoints server.
	// Default: web.NewServer
	HTTPServerFactory func(addr string, handler http.Handler, timeout time.Duration) HTTPServer

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Pool wraps the methods used from pgxpool.Pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator wraps the methods used from store.Migrator at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// HTTPServer wraps the methods used from web.Server.
type HTTPServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
