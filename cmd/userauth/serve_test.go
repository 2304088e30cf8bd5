// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/memory"
	redisstore "github.com/holomush/userauth/internal/auth/redis"
	"github.com/holomush/userauth/internal/auth/sqlite"
	"github.com/holomush/userauth/internal/config"
	usertls "github.com/holomush/userauth/internal/tls"
	"github.com/holomush/userauth/pkg/errutil"
)

func loadTestConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	cfg, err := config.Load("", fs)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func keepDefaultLogger(t *testing.T) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
}

func quietCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	return cmd
}

func TestRunServe_EndToEnd(t *testing.T) {
	keepDefaultLogger(t)
	cfg := loadTestConfig(t,
		"--auth.type=session",
		"--session.store=memory",
		"--http.addr=127.0.0.1:0",
		"--metrics.addr=127.0.0.1:0",
		"--log.format=text",
	)

	type addrs struct{ web, metrics string }
	readyCh := make(chan addrs, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, quietCmd(), cfg, &ServeDeps{
			OnReady: func(web, metrics string) { readyCh <- addrs{web, metrics} },
		})
	}()

	var a addrs
	select {
	case a = <-readyCh:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for serve")
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	base := "http://" + a.web

	resp, err := client.PostForm(base+"/users", url.Values{"email": {"bob@example.com"}, "password": {"hunter2"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + "/api/v1/users/me")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.PostForm(base+"/api/v1/auth_session/login", url.Values{"email": {"bob@example.com"}, "password": {"hunter2"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sid string
	for _, c := range resp.Cookies() {
		if c.Name == cfg.Session.CookieName {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)

	req, err := http.NewRequest(http.MethodGet, base+"/api/v1/users/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cfg.Session.CookieName, Value: sid})
	resp, err = client.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "bob@example.com")

	resp, err = client.Get("http://" + a.metrics + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	metrics := string(body)
	assert.Contains(t, metrics, `userauth_registrations_total{result="success"} 1`)
	assert.Contains(t, metrics, `userauth_sessions_total{op="created"} 1`)
	assert.Contains(t, metrics, `userauth_auth_attempts_total{result="authenticated",strategy="session"} 1`)

	resp, err = client.Get("http://" + a.metrics + "/healthz/readiness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for shutdown")
	}
}

func TestRunServe_UserStoreFailure(t *testing.T) {
	keepDefaultLogger(t)
	cfg := loadTestConfig(t, "--http.addr=127.0.0.1:0", "--metrics.addr=")

	err := runServe(context.Background(), quietCmd(), cfg, &ServeDeps{
		UserStoreFactory: func(context.Context, config.StorageConfig, *slog.Logger) (auth.UserStore, func(), error) {
			return nil, nil, errors.New("disk on fire")
		},
	})
	errutil.AssertErrorCode(t, err, "SERVE_FAILED")
}

func TestOpenUserStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		users, release, err := openUserStore(ctx, config.StorageConfig{Driver: "memory"}, logger)
		require.NoError(t, err)
		defer release()
		assert.IsType(t, &memory.UserStore{}, users)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "users.db")
		users, release, err := openUserStore(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: path}, logger)
		require.NoError(t, err)
		defer release()
		assert.IsType(t, &sqlite.UserStore{}, users)
	})

	t.Run("postgres with malformed url", func(t *testing.T) {
		_, _, err := openUserStore(ctx, config.StorageConfig{Driver: "postgres", DatabaseURL: "://nope"}, logger)
		errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
	})
}

func TestOpenSessionStore(t *testing.T) {
	users := memory.NewUserStore()

	t.Run("table", func(t *testing.T) {
		cfg := loadTestConfig(t)
		sessions, release := openSessionStore(cfg, users, &ServeDeps{})
		defer release()
		assert.IsType(t, &auth.TableSessionStore{}, sessions)
	})

	t.Run("memory", func(t *testing.T) {
		cfg := loadTestConfig(t, "--session.store=memory")
		sessions, release := openSessionStore(cfg, users, &ServeDeps{})
		defer release()
		assert.IsType(t, &memory.SessionStore{}, sessions)
	})

	t.Run("redis", func(t *testing.T) {
		cfg := loadTestConfig(t, "--session.store=redis", "--session.ttl=1m", "--redis.addr=cache:6379", "--redis.db=4")
		client, mock := redismock.NewClientMock()
		var got config.RedisConfig
		sessions, release := openSessionStore(cfg, users, &ServeDeps{
			RedisClientFactory: func(rc config.RedisConfig) goredis.UniversalClient {
				got = rc
				return client
			},
		})
		defer release()

		assert.IsType(t, &redisstore.SessionStore{}, sessions)
		assert.Equal(t, "cache:6379", got.Addr)
		assert.Equal(t, 4, got.DB)

		mock.ExpectSet(redisstore.DefaultPrefix+":sid-1", "user-1", time.Minute).SetVal("OK")
		require.NoError(t, sessions.Put(context.Background(), "sid-1", "user-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWebTLSConfig(t *testing.T) {
	t.Run("self-signed under data dir", func(t *testing.T) {
		dataHome := t.TempDir()
		t.Setenv("XDG_DATA_HOME", dataHome)

		tlsCfg, err := webTLSConfig(config.HTTPConfig{Addr: "auth.local:8443", TLSSelfSigned: true})
		require.NoError(t, err)
		require.Len(t, tlsCfg.Certificates, 1)

		stored, err := usertls.LoadCertificate(filepath.Join(dataHome, "userauth", "certs"))
		require.NoError(t, err)
		assert.Contains(t, stored.Certificate.DNSNames, "auth.local")
	})

	t.Run("explicit files", func(t *testing.T) {
		certFile, keyFile, err := usertls.EnsureSelfSigned(t.TempDir(), nil)
		require.NoError(t, err)

		tlsCfg, err := webTLSConfig(config.HTTPConfig{TLSCert: certFile, TLSKey: keyFile})
		require.NoError(t, err)
		assert.Len(t, tlsCfg.Certificates, 1)
	})

	t.Run("missing files", func(t *testing.T) {
		_, err := webTLSConfig(config.HTTPConfig{TLSCert: "/nonexistent.crt", TLSKey: "/nonexistent.key"})
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
	})
}

func TestMonitorServerErrors(t *testing.T) {
	t.Run("error cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error, 1)
		errCh <- errors.New("listener died")
		monitorServerErrors(ctx, cancel, errCh, "web")
		assert.Error(t, ctx.Err())
	})

	t.Run("closed channel does not cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)
		monitorServerErrors(ctx, cancel, errCh, "web")
		assert.NoError(t, ctx.Err())
	})
}

func TestServeCmd_Help(t *testing.T) {
	out, err := execute(t, "", "serve", "--help")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "--http.addr"), "serve inherits config flags")
}
