// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// DatabaseURLEnv is consulted when database.url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"http-addr":        "http.addr",
	"request-timeout":  "http.request_timeout",
	"metrics-addr":     "metrics.addr",
	"log-format":       "log.format",
	"log-level":        "log.level",
	"database-url":     "database.url",
	"tokens-backend":   "tokens.backend",
	"token-ttl":        "tokens.ttl_minutes",
	"invalidate-prior": "tokens.invalidate_prior",
	"redis-addr":       "redis.addr",
	"mail-backend":     "mail.backend",
	"mail-from":        "mail.from",
	"smtp-addr":        "mail.smtp_addr",
	"reset-url":        "mail.reset_url",
}

// RegisterFlags adds the config override flags to fs. Their defaults match
// Default so an unset flag never masks a value from the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "account endpoints listen address")
	fs.Duration("request-timeout", d.HTTP.RequestTimeout, "per-request timeout")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health listen address (empty to disable)")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL")
	fs.String("tokens-backend", d.Tokens.Backend, "reset token store (postgres, redis)")
	fs.Int("token-ttl", d.Tokens.TTLMinutes, "reset token lifetime in minutes")
	fs.Bool("invalidate-prior", d.Tokens.InvalidatePrior, "remove outstanding reset tokens before issuing a new one")
	fs.String("redis-addr", d.Redis.Addr, "Redis address for the redis token backend")
	fs.String("mail-backend", d.Mail.Backend, "mail transport (log, smtp)")
	fs.String("mail-from", d.Mail.From, "sender address")
	fs.String("smtp-addr", d.Mail.SMTPAddr, "SMTP relay host:port")
	fs.String("reset-url", d.Mail.ResetURL, "password reset page URL")
}

// Load reads path (skipped when empty) and the flags in fs (may be nil) over
// Default. The result is not validated.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}
	return &cfg, nil
}

// LoadFile validates path against the config schema, then loads and
// validates it together with fs.
func LoadFile(path string, fs *pflag.FlagSet) (*Config, error) {
	if path != "" {
		if err := ValidateFile(path); err != nil {
			return nil, err
		}
	}
	cfg, err := Load(path, fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
