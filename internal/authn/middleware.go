// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import (
	"encoding/json"
	"net/http"
)

// AttemptRecorder counts authentication outcomes.
type AttemptRecorder interface {
	AuthAttempt(strategy, result string)
}

// Outcomes passed to AttemptRecorder.
const (
	ResultExempt        = "exempt"
	ResultUnauthorized  = "unauthorized"
	ResultForbidden     = "forbidden"
	ResultAuthenticated = "authenticated"
)

type middlewareConfig struct {
	recorder AttemptRecorder
	strategy string
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithRecorder reports each request's outcome to rec under the strategy label.
func WithRecorder(rec AttemptRecorder, strategy string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.recorder = rec
		c.strategy = strategy
	}
}

// Middleware guards next with a. Requests to exempt paths pass through.
// Other requests need an Authorization header or session cookie (else 401)
// that resolves to a user (else 403); the user is stored in the request
// context. A nil Authenticator disables the check.
func Middleware(a Authenticator, exempt *Exemptions, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	record := func(result string) {
		if cfg.recorder != nil {
			cfg.recorder.AuthAttempt(cfg.strategy, result)
		}
	}

	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !exempt.RequireAuth(r.URL.Path) {
				record(ResultExempt)
				next.ServeHTTP(w, r)
				return
			}

			req := FromHTTP(r)
			_, hasHeader := a.AuthorizationHeader(req)
			_, hasCookie := a.SessionCookie(req)
			if !hasHeader && !hasCookie {
				record(ResultUnauthorized)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, ok := a.CurrentUser(r.Context(), req)
			if !ok {
				record(ResultForbidden)
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}

			record(ResultAuthenticated)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck // client gone
}
