// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/pkg/errutil"
)

// SessionAuth authenticates requests by a session cookie mapped to a user
// through an auth.SessionStore.
type SessionAuth struct {
	Base
	sessions auth.SessionStore
	users    auth.UserFinder
	logger   *slog.Logger
}

// NewSessionAuth creates a SessionAuth. cookieName names the session cookie;
// if it is empty no request ever carries a session.
func NewSessionAuth(cookieName string, sessions auth.SessionStore, users auth.UserFinder, logger *slog.Logger) *SessionAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAuth{
		Base:     Base{CookieName: cookieName},
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// CreateSession starts a session for userID and returns its identifier.
func (a *SessionAuth) CreateSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", oops.Code("AUTH_INVALID_USER").Errorf("user id cannot be empty")
	}

	if _, err := a.users.Find(ctx, auth.FieldID, userID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return "", err
		}
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "find user").
			With("user_id", userID).
			Wrap(err)
	}

	sessionID, err := auth.NewSessionID()
	if err != nil {
		return "", err
	}
	if err := a.sessions.Put(ctx, sessionID, userID); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session").
			With("user_id", userID).
			Wrap(err)
	}

	a.logger.InfoContext(ctx, "session created", "user_id", userID)
	return sessionID, nil
}

// UserIDForSession returns the user mapped to sessionID.
func (a *SessionAuth) UserIDForSession(ctx context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	userID, err := a.sessions.UserID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(ctx, a.logger, "session lookup failed", err)
		}
		return "", false
	}
	return userID, true
}

// CurrentUser resolves the user from the session cookie.
func (a *SessionAuth) CurrentUser(ctx context.Context, req Request) (*auth.User, bool) {
	sessionID, ok := a.SessionCookie(req)
	if !ok {
		return nil, false
	}
	userID, ok := a.UserIDForSession(ctx, sessionID)
	if !ok {
		return nil, false
	}
	user, err := a.users.Find(ctx, auth.FieldID, userID)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(ctx, a.logger, "user lookup failed", err)
		}
		return nil, false
	}
	return user, true
}

// DestroySession ends the session named by the request's cookie.
func (a *SessionAuth) DestroySession(ctx context.Context, req Request) bool {
	sessionID, ok := a.SessionCookie(req)
	if !ok {
		return false
	}
	return a.DestroySessionID(ctx, sessionID)
}

// DestroySessionID ends sessionID. It returns false if the session was not live.
func (a *SessionAuth) DestroySessionID(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(ctx, a.logger, "session delete failed", err)
		}
		return false
	}
	a.logger.InfoContext(ctx, "session destroyed")
	return true
}

// Compile-time interface check.
var _ Authenticator = (*SessionAuth)(nil)
