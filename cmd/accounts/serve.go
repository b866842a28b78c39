// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/internal/auth"
	authpg "github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/logging"
	"github.com/holomush/accounts/internal/notify"
	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/internal/store"
	"github.com/holomush/accounts/internal/store/redisstore"
	"github.com/holomush/accounts/internal/web"
)

const (
	serviceName     = "accounts"
	shutdownTimeout = 5 * time.Second
	readinessProbe  = 2 * time.Second
)

type serveOptions struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account HTTP service",
		Long: `Start the HTTP service that handles POST /register, POST /unregister
and POST /forgotpassword, plus the metrics and health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, opts, cmd, nil)
		},
	}

	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", false, "apply pending database migrations before serving")

	return cmd
}

func (deps *ServeDeps) applyDefaults() {
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string) (Pool, error) {
			return store.Connect(ctx, url, store.DefaultConnectOptions())
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (AutoMigrator, error) {
			return store.NewMigrator(url, store.WithMigratorLogger(slog.Default()))
		}
	}
	if deps.RedisFactory == nil {
		deps.RedisFactory = func(cfg config.RedisConfig) redis.UniversalClient {
			return redis.NewClient(&redis.Options{
				Addr:     cfg.Addr,
				Password: cfg.Password,
				DB:       cfg.DB,
			})
		}
	}
	if deps.TransportFactory == nil {
		deps.TransportFactory = newTransport
	}
	if deps.HTTPServerFactory == nil {
		deps.HTTPServerFactory = func(addr string, handler http.Handler, timeout time.Duration) HTTPServer {
			return web.NewServer(addr, handler,
				web.WithRequestTimeout(timeout),
				web.WithServerLogger(slog.Default()),
			)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, observability.WithLogger(slog.Default()))
		}
	}
}

// newTransport picks the mail transport named by cfg.Backend.
func newTransport(cfg config.MailConfig, logger *slog.Logger) (notify.Transport, error) {
	switch cfg.Backend {
	case config.MailSMTP:
		return notify.NewSMTPTransport(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Retries:  cfg.Retries,
		}, notify.WithSMTPLogger(logger))
	case config.MailLog, "":
		return notify.NewLogTransport(logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "mail.backend").
			Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, opts *serveOptions, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logging.SetDefault(serviceName, version, cfg.Log.Format,
		logging.WithLevel(logging.ParseLevel(cfg.Log.Level)))
	logger := slog.Default()

	logger.Info("starting accounts service",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Tokens.Backend,
		"mail", cfg.Mail.Backend,
	)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if opts != nil && opts.autoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	var tokens account.TokenStore = store.NewResetTokenRepository(pool)
	var redisClient redis.UniversalClient
	if cfg.Tokens.Backend == config.TokensRedis {
		redisClient = deps.RedisFactory(cfg.Redis)
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.Debug("error closing redis client", "error", closeErr)
			}
		}()
		tokens, err = redisstore.NewTokenStore(redisClient)
		if err != nil {
			return err
		}
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, readiness(ctx, pool, redisClient))
		metrics = obsServer.Metrics()
	}

	handler, err := buildHandler(cfg, pool, tokens, deps, metrics, logger)
	if err != nil {
		return err
	}

	httpServer := deps.HTTPServerFactory(cfg.HTTP.Addr, handler, cfg.HTTP.RequestTimeout)
	httpErrChan, err := httpServer.Start()
	if err != nil {
		return oops.With("operation", "start http server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrChan, "http")
	logger.Info("http server started", "addr", httpServer.Addr())

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if stopErr := httpServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop http server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Accounts service started")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildHandler wires the stores, session service, mailer and orchestrators
// behind the account endpoints.
func buildHandler(
	cfg *config.Config,
	pool Pool,
	tokens account.TokenStore,
	deps *ServeDeps,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (http.Handler, error) {
	userID := account.UserIDGetter(account.ByID)
	accounts := store.NewAccountRepository(pool)

	sessions, err := auth.NewSessionService(
		authpg.NewWebSessionRepository(pool),
		accounts,
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithSessionUserID(userID),
		auth.WithSessionLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	transport, err := deps.TransportFactory(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	mailer, err := notify.NewMailer(transport, notify.MailerConfig{
		From:            cfg.Mail.From,
		AppName:         cfg.Mail.AppName,
		ResetURL:        cfg.Mail.ResetURL,
		TokenTTLMinutes: cfg.Tokens.TTLMinutes,
	}, notify.WithMailerLogger(logger))
	if err != nil {
		return nil, err
	}

	acctCfg := account.Config{
		TokenTTLMinutes:       cfg.Tokens.TTLMinutes,
		UserIDGetter:          userID,
		InvalidatePriorTokens: cfg.Tokens.InvalidatePrior,
	}
	registrar, err := account.NewRegistrar(auth.NewArgon2idHasher(), accounts, sessions, mailer, acctCfg, account.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	deregistrar, err := account.NewDeregistrar(accounts, sessions, acctCfg, account.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	resetter, err := account.NewPasswordResetter(accounts, tokens, mailer, acctCfg, account.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return web.NewHandler(web.HandlerConfig{
		Registrar:       registrar,
		Deregistrar:     deregistrar,
		Resetter:        resetter,
		Unauthenticated: sessions,
		UserIDGetter:    userID,
		Carriers: web.CookieCarriers(auth.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.SecureCookie,
		}),
		Metrics: metrics,
		Logger:  logger,
	})
}

// autoMigrate applies pending migrations and always closes the migrator.
func autoMigrate(deps *ServeDeps, databaseURL string, logger *slog.Logger) (err error) {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	logger.Info("applying database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	return nil
}

// readiness reports ready while the database, and redis when configured,
// answer a ping.
func readiness(ctx context.Context, pool Pool, client redis.UniversalClient) observability.ReadinessChecker {
	return func() bool {
		probeCtx, cancel := context.WithTimeout(ctx, readinessProbe)
		defer cancel()
		if err := pool.Ping(probeCtx); err != nil {
			return false
		}
		if client != nil {
			if err := client.Ping(probeCtx).Err(); err != nil {
				return false
			}
		}
		return true
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
