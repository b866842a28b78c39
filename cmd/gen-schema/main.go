// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema writes the config file JSON Schema, used by editors and
// by `accounts config validate`.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/holomush/accounts/internal/config"
)

func main() {
	out := pflag.StringP("out", "o", filepath.Join("schemas", "config.schema.json"), "output file")
	check := pflag.Bool("check", false, "fail if the file on disk is out of date instead of writing it")
	pflag.Parse()

	if err := run(*out, *check); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string, check bool) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}
	schema = append(schema, '\n')

	if check {
		existing, err := os.ReadFile(outPath) //nolint:gosec // path is operator supplied
		if err != nil {
			return err
		}
		if string(existing) != string(schema) {
			return fmt.Errorf("%s is out of date; run gen-schema", outPath)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	fmt.Printf("Generated %s\n", outPath)
	return nil
}
