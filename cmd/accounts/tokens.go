// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authpg "github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/store"
)

// poolFactory is replaced in tests.
var poolFactory = func(ctx context.Context, url string) (Pool, error) {
	return store.Connect(ctx, url, store.DefaultConnectOptions())
}

// NewTokensCmd creates the tokens subcommand.
func NewTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain password reset tokens and web sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired password reset tokens and web sessions",
		Long: `Delete expired password reset tokens and web sessions from PostgreSQL.
Tokens kept in Redis expire on their own and are not touched.`,
		RunE: runTokensPurge,
	})

	return cmd
}

func runTokensPurge(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := loadConfigUnvalidated(path, cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database.url, --database-url or DATABASE_URL is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := poolFactory(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	if cfg.Tokens.Backend == config.TokensPostgres {
		removed, err := store.NewResetTokenRepository(pool).DeleteExpired(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("Deleted %d expired reset tokens\n", removed)
	} else {
		cmd.Println("Reset tokens are stored in Redis and expire automatically")
	}

	removed, err := authpg.NewWebSessionRepository(pool).DeleteExpired(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d expired web sessions\n", removed)
	return nil
}
