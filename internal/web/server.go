// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web serves the userauth HTTP routes: registration, cookie
// sessions and password reset at the root, and an authenticated JSON API
// under /api/v1/.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/authn"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "session_id"

// Recorder receives counts of authentication events.
type Recorder interface {
	authn.AttemptRecorder
	Session(op string)
	Registration(result string)
	PasswordReset(stage, result string)
}

type nopRecorder struct{}

func (nopRecorder) AuthAttempt(string, string)   {}
func (nopRecorder) Session(string)               {}
func (nopRecorder) Registration(string)          {}
func (nopRecorder) PasswordReset(string, string) {}

// Server serves the userauth routes.
type Server struct {
	svc           *auth.Service
	authenticator authn.Authenticator
	strategy      string
	exempt        *authn.Exemptions
	cookieName    string
	recorder      Recorder
	logger        *slog.Logger
	tlsConfig     *tls.Config

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator guards /api/v1/ with a. strategy labels recorded
// attempts. A nil Authenticator leaves the API open.
func WithAuthenticator(a authn.Authenticator, strategy string) Option {
	return func(s *Server) {
		s.authenticator = a
		s.strategy = strategy
	}
}

// WithExemptions sets the API paths that need no authentication.
func WithExemptions(ex *authn.Exemptions) Option {
	return func(s *Server) {
		s.exempt = ex
	}
}

// WithCookieName names the session cookie set by POST /sessions.
func WithCookieName(name string) Option {
	return func(s *Server) {
		s.cookieName = name
	}
}

// WithRecorder sets where event counts go.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithTLS serves HTTPS with cfg and marks session cookies Secure.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server over svc.
func NewServer(svc *auth.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("auth service is required")
	}
	s := &Server{
		svc:        svc,
		cookieName: DefaultCookieName,
		recorder:   nopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cookieName == "" {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("cookie name cannot be empty")
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Handler returns the routes as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("DELETE /sessions", s.handleLogout)
	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.HandleFunc("POST /reset_password", s.handleResetRequest)
	mux.HandleFunc("PUT /reset_password", s.handleResetApply)

	guard := authn.Middleware(s.authenticator, s.exempt, authn.WithRecorder(s.recorder, s.strategy))
	mux.Handle("/api/v1/", guard(s.apiHandler()))
	return mux
}

// Start listens on addr and serves in the background. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_ALREADY_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String(), "tls", s.tlsConfig != nil)
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_web_server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
