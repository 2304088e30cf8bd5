// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import (
	"context"

	"github.com/holomush/userauth/internal/auth"
)

// Authenticator is the capability set shared by every authentication scheme.
type Authenticator interface {
	// RequireAuth reports whether path needs authentication given the
	// exempt patterns.
	RequireAuth(path string, excluded []string) bool
	// AuthorizationHeader returns the request's Authorization header.
	AuthorizationHeader(req Request) (string, bool)
	// SessionCookie returns the request's session cookie.
	SessionCookie(req Request) (string, bool)
	// CurrentUser resolves the user making the request. Every failure
	// yields (nil, false).
	CurrentUser(ctx context.Context, req Request) (*auth.User, bool)
}

// Base implements the parts of Authenticator common to all schemes. On its
// own it never resolves a user.
type Base struct {
	// CookieName names the session cookie. Empty disables cookie lookup.
	CookieName string
}

// RequireAuth implements Authenticator. A pattern that fails to compile
// exempts nothing.
func (b Base) RequireAuth(path string, excluded []string) bool {
	ex, err := CompileExemptions(excluded)
	if err != nil {
		return true
	}
	return ex.RequireAuth(path)
}

// AuthorizationHeader implements Authenticator.
func (b Base) AuthorizationHeader(req Request) (string, bool) {
	if req == nil {
		return "", false
	}
	return req.Header("Authorization")
}

// SessionCookie implements Authenticator.
func (b Base) SessionCookie(req Request) (string, bool) {
	if req == nil || b.CookieName == "" {
		return "", false
	}
	return req.Cookie(b.CookieName)
}

// CurrentUser implements Authenticator. It always yields no user.
func (b Base) CurrentUser(context.Context, Request) (*auth.User, bool) {
	return nil, false
}

// Compile-time interface check.
var _ Authenticator = Base{}
