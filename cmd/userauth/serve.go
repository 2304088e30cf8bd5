// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/memory"
	"github.com/holomush/userauth/internal/auth/postgres"
	redisstore "github.com/holomush/userauth/internal/auth/redis"
	"github.com/holomush/userauth/internal/auth/sqlite"
	"github.com/holomush/userauth/internal/authn"
	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/internal/observability"
	"github.com/holomush/userauth/internal/store"
	usertls "github.com/holomush/userauth/internal/tls"
	"github.com/holomush/userauth/internal/web"
	"github.com/holomush/userauth/internal/xdg"
)

// shutdownTimeout bounds graceful shutdown of each server.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(opts *rootOptions, deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server for registration, sessions and password reset,
plus the metrics and health endpoints when metrics.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg, deps)
		},
	}
}

// runServe starts the servers and blocks until a signal, a server error or
// ctx cancellation.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.UserStoreFactory == nil {
		deps.UserStoreFactory = openUserStore
	}
	if deps.RedisClientFactory == nil {
		deps.RedisClientFactory = func(cfg config.RedisConfig) goredis.UniversalClient {
			return goredis.NewClient(&goredis.Options{
				Addr:     cfg.Addr,
				Password: cfg.Password,
				DB:       cfg.DB,
			})
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	logger := setupLogging(cfg)
	logger.Info("starting userauth",
		"version", version,
		"storage_driver", cfg.Storage.Driver,
		"session_store", cfg.Session.Store,
		"auth_type", cfg.Auth.Type,
	)

	users, release, err := deps.UserStoreFactory(ctx, cfg.Storage, logger)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "open user store").Wrap(err)
	}
	defer release()

	svc, err := auth.NewService(users, auth.NewArgon2idHasher(), auth.WithLogger(logger))
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "create auth service").Wrap(err)
	}

	sessions, closeSessions := openSessionStore(cfg, users, deps)
	defer closeSessions()

	authenticator, err := authn.New(authn.Kind(cfg.Auth.Type), authn.Deps{
		CookieName: cfg.Session.CookieName,
		Verifier:   svc,
		Sessions:   sessions,
		Users:      users,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	exemptions, err := authn.CompileExemptions(cfg.Auth.ExcludedPaths)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		defer stopServer(logger, "observability", obsServer.Stop)
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	webOpts := []web.Option{
		web.WithAuthenticator(authenticator, cfg.Auth.Type),
		web.WithExemptions(exemptions),
		web.WithRecorder(metrics),
		web.WithLogger(logger),
	}
	if cfg.Session.CookieName != "" {
		webOpts = append(webOpts, web.WithCookieName(cfg.Session.CookieName))
	}
	if cfg.HTTP.TLSEnabled() {
		tlsCfg, err := webTLSConfig(cfg.HTTP)
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "load tls certificate").Wrap(err)
		}
		webOpts = append(webOpts, web.WithTLS(tlsCfg))
	}

	webServer, err := web.NewServer(svc, webOpts...)
	if err != nil {
		return err
	}
	webErrChan, err := webServer.Start(cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	defer stopServer(logger, "web", webServer.Stop)
	go monitorServerErrors(ctx, cancel, webErrChan, "web")

	ready.Store(true)
	if deps.OnReady != nil {
		metricsAddr := ""
		if obsServer != nil {
			metricsAddr = obsServer.Addr()
		}
		deps.OnReady(webServer.Addr(), metricsAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("userauth started")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	return nil
}

// webTLSConfig loads the configured key pair, or the self-signed one kept
// under the data directory.
func webTLSConfig(cfg config.HTTPConfig) (*tls.Config, error) {
	certFile, keyFile := cfg.TLSCert, cfg.TLSKey
	if cfg.TLSSelfSigned {
		dataDir, err := xdg.DataDir()
		if err != nil {
			return nil, err
		}
		var hosts []string
		if host, _, err := net.SplitHostPort(cfg.Addr); err == nil && host != "" {
			hosts = append(hosts, host)
		}
		certFile, keyFile, err = usertls.EnsureSelfSigned(filepath.Join(dataDir, "certs"), hosts)
		if err != nil {
			return nil, err
		}
	}
	return usertls.ServerConfig(certFile, keyFile)
}

// openUserStore opens the user table for the configured driver.
func openUserStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (auth.UserStore, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := store.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserStore(pool), pool.Close, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := xdg.EnsureDir(dir); err != nil {
				return nil, nil, err
			}
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("error closing sqlite store", "error", err)
			}
		}, nil
	default:
		return memory.NewUserStore(), func() {}, nil
	}
}

// openSessionStore returns the configured session store and its release func.
func openSessionStore(cfg *config.Config, users auth.UserStore, deps *ServeDeps) (auth.SessionStore, func()) {
	switch cfg.Session.Store {
	case "redis":
		client := deps.RedisClientFactory(cfg.Redis)
		return redisstore.NewSessionStore(client, redisstore.WithTTL(cfg.Session.TTL)), func() {
			if err := client.Close(); err != nil {
				slog.Warn("error closing redis client", "error", err)
			}
		}
	case "memory":
		return memory.NewSessionStore(), func() {}
	default:
		return auth.NewTableSessionStore(users), func() {}
	}
}

func stopServer(logger *slog.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It returns
// once errCh yields or ctx ends.
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
