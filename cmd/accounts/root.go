// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Accounts - account registration, removal and password reset",
		Long: `Accounts serves the account lifecycle endpoints: registration,
unregistration and password reset requests.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/accounts/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewTokensCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// resolveConfigPath returns the --config value, or the XDG default when it
// exists, or "" to run on defaults and flags alone.
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return "", nil //nolint:nilerr // no home directory means no default file
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	return path, nil
}

// loadConfig resolves the config path and loads it with the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.LoadFile(path, cmd.Flags())
}

// loadConfigUnvalidated loads path with the command's flags, checking only the
// file schema. Maintenance commands need the database URL, not a servable
// config.
func loadConfigUnvalidated(path string, cmd *cobra.Command) (*config.Config, error) {
	if path != "" {
		if err := config.ValidateFile(path); err != nil {
			return nil, err
		}
	}
	return config.Load(path, cmd.Flags())
}
