// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads and validates the accounts service configuration.
//
// Values are layered: built-in defaults, then the YAML config file, then
// command-line flags that were explicitly set.
package config

import (
	"net/mail"
	"net/url"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/account"
)

// Token store backends.
const (
	TokensPostgres = "postgres"
	TokensRedis    = "redis"
)

// Mail transports.
const (
	MailLog  = "log"
	MailSMTP = "smtp"
)

// Config is the root configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty" jsonschema:"description=Account endpoints listener"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" jsonschema:"description=Metrics and health listener"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Tokens   TokensConfig   `koanf:"tokens" json:"tokens,omitempty" jsonschema:"description=Password reset tokens"`
	Redis    RedisConfig    `koanf:"redis" json:"redis,omitempty"`
	Session  SessionConfig  `koanf:"session" json:"session,omitempty"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty"`
}

// HTTPConfig configures the account endpoints.
type HTTPConfig struct {
	Addr           string        `koanf:"addr" json:"addr,omitempty" jsonschema:"minLength=1"`
	RequestTimeout time.Duration `koanf:"request_timeout" json:"request_timeout,omitempty"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL connection URL; DATABASE_URL is used when empty"`
}

// TokensConfig configures password reset tokens.
type TokensConfig struct {
	Backend         string `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=postgres,enum=redis"`
	TTLMinutes      int    `koanf:"ttl_minutes" json:"ttl_minutes,omitempty" jsonschema:"minimum=0"`
	InvalidatePrior bool   `koanf:"invalidate_prior" json:"invalidate_prior,omitempty"`
}

// RedisConfig configures the Redis token store.
type RedisConfig struct {
	Addr     string `koanf:"addr" json:"addr,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
	DB       int    `koanf:"db" json:"db,omitempty" jsonschema:"minimum=0"`
}

// SessionConfig configures web sessions.
type SessionConfig struct {
	CookieName   string        `koanf:"cookie_name" json:"cookie_name,omitempty" jsonschema:"minLength=1"`
	TTL          time.Duration `koanf:"ttl" json:"ttl,omitempty"`
	SecureCookie bool          `koanf:"secure_cookie" json:"secure_cookie,omitempty"`
}

// MailConfig configures outgoing email.
type MailConfig struct {
	Backend      string `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=log,enum=smtp"`
	From         string `koanf:"from" json:"from,omitempty"`
	AppName      string `koanf:"app_name" json:"app_name,omitempty"`
	SMTPAddr     string `koanf:"smtp_addr" json:"smtp_addr,omitempty"`
	SMTPUsername string `koanf:"smtp_username" json:"smtp_username,omitempty"`
	SMTPPassword string `koanf:"smtp_password" json:"smtp_password,omitempty"`
	ResetURL     string `koanf:"reset_url" json:"reset_url,omitempty" jsonschema:"format=uri"`
	Retries      uint64 `koanf:"retries" json:"retries,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: 15 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Tokens: TokensConfig{
			Backend:    TokensPostgres,
			TTLMinutes: account.DefaultTokenTTLMinutes,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Session: SessionConfig{
			CookieName:   "accounts_session",
			TTL:          24 * time.Hour,
			SecureCookie: true,
		},
		Mail: MailConfig{
			Backend: MailLog,
			From:    "accounts@localhost",
			AppName: "Accounts",
			Retries: 3,
		},
	}
}

// Validate checks every field and reports the first invalid key.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return invalid("http.addr", c.HTTP.Addr, "listen address is required")
	case c.HTTP.RequestTimeout <= 0:
		return invalid("http.request_timeout", c.HTTP.RequestTimeout, "must be positive")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", c.Log.Format, "must be json or text")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return invalid("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	if c.Database.URL == "" {
		return invalid("database.url", "", "database URL is required")
	}

	switch c.Tokens.Backend {
	case TokensPostgres:
	case TokensRedis:
		if c.Redis.Addr == "" {
			return invalid("redis.addr", "", "required by the redis token backend")
		}
	default:
		return invalid("tokens.backend", c.Tokens.Backend, "must be postgres or redis")
	}
	if c.Tokens.TTLMinutes < 0 {
		return invalid("tokens.ttl_minutes", c.Tokens.TTLMinutes, "must not be negative")
	}
	if c.Redis.DB < 0 {
		return invalid("redis.db", c.Redis.DB, "must not be negative")
	}

	if c.Session.CookieName == "" {
		return invalid("session.cookie_name", "", "cookie name is required")
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", c.Session.TTL, "must be positive")
	}

	switch c.Mail.Backend {
	case MailLog:
	case MailSMTP:
		if c.Mail.SMTPAddr == "" {
			return invalid("mail.smtp_addr", "", "required by the smtp mail backend")
		}
	default:
		return invalid("mail.backend", c.Mail.Backend, "must be log or smtp")
	}
	if _, err := mail.ParseAddress(c.Mail.From); err != nil {
		return invalid("mail.from", c.Mail.From, "must be an email address")
	}
	if c.Mail.ResetURL != "" {
		u, err := url.Parse(c.Mail.ResetURL)
		if err != nil || !u.IsAbs() {
			return invalid("mail.reset_url", c.Mail.ResetURL, "must be an absolute URL")
		}
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "[REDACTED]"
	}
	c.Redis.Password = mask(c.Redis.Password)
	c.Mail.SMTPPassword = mask(c.Mail.SMTPPassword)
	if u, err := url.Parse(c.Database.URL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "REDACTED")
			c.Database.URL = u.String()
		}
	}
	return c
}

func invalid(key string, value any, msg string) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		With("value", value).
		Errorf("%s: %s", key, msg)
}
