// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store provides PostgreSQL storage for accounts and reset tokens.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// poolIface is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ poolIface = (*pgxpool.Pool)(nil)

// ConnectOptions controls connection retries.
type ConnectOptions struct {
	Attempts  uint64
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
}

// DefaultConnectOptions returns the options used by the serve command.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Attempts:  5,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  5 * time.Second,
		Logger:    slog.Default(),
	}
}

// Connect opens a pool to databaseURL and pings it, retrying with exponential
// backoff until the database answers or the attempts are spent.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}

	backoff := retry.NewExponential(opts.BaseDelay)
	if opts.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(opts.MaxDelay, backoff)
	}
	if opts.Attempts > 1 {
		backoff = retry.WithMaxRetries(opts.Attempts-1, backoff)
	} else {
		backoff = retry.WithMaxRetries(0, backoff)
	}

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return oops.Code("STORE_CONNECT_FAILED").With("attempt", attempt).Wrap(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			opts.Logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(oops.Code("STORE_CONNECT_FAILED").With("attempt", attempt).Wrap(err))
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "connect").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
