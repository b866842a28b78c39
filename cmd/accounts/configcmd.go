// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/accounts/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the config file JSON Schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a config file against the schema and field rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadFile(args[0], nil); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadConfigUnvalidated(path, cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(displayConfig(cfg.Redacted()))
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	})

	return cmd
}

// displayConfig mirrors the config file layout for yaml output.
func displayConfig(c config.Config) map[string]any {
	return map[string]any{
		"http": map[string]any{
			"addr":            c.HTTP.Addr,
			"request_timeout": c.HTTP.RequestTimeout.String(),
		},
		"metrics": map[string]any{"addr": c.Metrics.Addr},
		"log": map[string]any{
			"format": c.Log.Format,
			"level":  c.Log.Level,
		},
		"database": map[string]any{"url": c.Database.URL},
		"tokens": map[string]any{
			"backend":          c.Tokens.Backend,
			"ttl_minutes":      c.Tokens.TTLMinutes,
			"invalidate_prior": c.Tokens.InvalidatePrior,
		},
		"redis": map[string]any{
			"addr":     c.Redis.Addr,
			"password": c.Redis.Password,
			"db":       c.Redis.DB,
		},
		"session": map[string]any{
			"cookie_name":   c.Session.CookieName,
			"ttl":           c.Session.TTL.String(),
			"secure_cookie": c.Session.SecureCookie,
		},
		"mail": map[string]any{
			"backend":       c.Mail.Backend,
			"from":          c.Mail.From,
			"app_name":      c.Mail.AppName,
			"smtp_addr":     c.Mail.SMTPAddr,
			"smtp_username": c.Mail.SMTPUsername,
			"smtp_password": c.Mail.SMTPPassword,
			"reset_url":     c.Mail.ResetURL,
			"retries":       c.Mail.Retries,
		},
	}
}
