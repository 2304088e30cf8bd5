// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/memory"
	"github.com/holomush/userauth/internal/auth/mocks"
	"github.com/holomush/userauth/internal/authn"
	"github.com/holomush/userauth/pkg/errutil"
)

const cookieName = "_my_session_id"

func newSessionAuth(t *testing.T) (*authn.SessionAuth, *auth.User) {
	t.Helper()
	users := memory.NewUserStore()
	u, err := users.Insert(context.Background(), "bob@example.com", "hash")
	require.NoError(t, err)
	return authn.NewSessionAuth(cookieName, memory.NewSessionStore(), users, slog.New(slog.DiscardHandler)), u
}

func withCookie(sid string) authn.Request {
	return authn.Values{Cookies: map[string]string{cookieName: sid}}
}

func TestSessionAuth_Lifecycle(t *testing.T) {
	ctx := context.Background()
	a, u := newSessionAuth(t)

	sid, err := a.CreateSession(ctx, u.ID)
	require.NoError(t, err)
	parsed, err := uuid.Parse(sid)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	userID, ok := a.UserIDForSession(ctx, sid)
	require.True(t, ok)
	assert.Equal(t, u.ID, userID)

	user, ok := a.CurrentUser(ctx, withCookie(sid))
	require.True(t, ok)
	assert.Equal(t, u.Email, user.Email)

	assert.True(t, a.DestroySession(ctx, withCookie(sid)))

	_, ok = a.CurrentUser(ctx, withCookie(sid))
	assert.False(t, ok)
	assert.False(t, a.DestroySession(ctx, withCookie(sid)), "second destroy reports nothing to do")
}

func TestSessionAuth_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("empty user id", func(t *testing.T) {
		a, _ := newSessionAuth(t)
		_, err := a.CreateSession(ctx, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_USER")
	})

	t.Run("unknown user", func(t *testing.T) {
		a, _ := newSessionAuth(t)
		_, err := a.CreateSession(ctx, auth.NewUserID())
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("fresh id each time", func(t *testing.T) {
		a, u := newSessionAuth(t)
		s1, err := a.CreateSession(ctx, u.ID)
		require.NoError(t, err)
		s2, err := a.CreateSession(ctx, u.ID)
		require.NoError(t, err)
		assert.NotEqual(t, s1, s2)
	})

	t.Run("new session replaces the previous one", func(t *testing.T) {
		a, u := newSessionAuth(t)
		s1, err := a.CreateSession(ctx, u.ID)
		require.NoError(t, err)
		s2, err := a.CreateSession(ctx, u.ID)
		require.NoError(t, err)

		_, ok := a.CurrentUser(ctx, withCookie(s1))
		assert.False(t, ok, "old session must stop resolving")
		user, ok := a.CurrentUser(ctx, withCookie(s2))
		require.True(t, ok)
		assert.Equal(t, u.ID, user.ID)
	})

	t.Run("store failure", func(t *testing.T) {
		users := memory.NewUserStore()
		u, err := users.Insert(ctx, "bob@example.com", "hash")
		require.NoError(t, err)
		sessions := mocks.NewMockSessionStore(t)
		sessions.On("Put", ctx, mockAnyString, u.ID).Return(errors.New("redis down"))

		a := authn.NewSessionAuth(cookieName, sessions, users, slog.New(slog.DiscardHandler))
		_, err = a.CreateSession(ctx, u.ID)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})
}

func TestSessionAuth_CurrentUserMisses(t *testing.T) {
	ctx := context.Background()

	t.Run("no cookie", func(t *testing.T) {
		a, _ := newSessionAuth(t)
		_, ok := a.CurrentUser(ctx, authn.Values{})
		assert.False(t, ok)
	})

	t.Run("unknown session", func(t *testing.T) {
		a, _ := newSessionAuth(t)
		_, ok := a.CurrentUser(ctx, withCookie("nope"))
		assert.False(t, ok)
	})

	t.Run("session maps to deleted user", func(t *testing.T) {
		sessions := memory.NewSessionStore()
		require.NoError(t, sessions.Put(ctx, "sid", "ghost"))
		a := authn.NewSessionAuth(cookieName, sessions, memory.NewUserStore(), nil)

		_, ok := a.CurrentUser(ctx, withCookie("sid"))
		assert.False(t, ok)
	})

	t.Run("cookie name unset", func(t *testing.T) {
		users := memory.NewUserStore()
		u, err := users.Insert(ctx, "bob@example.com", "hash")
		require.NoError(t, err)
		a := authn.NewSessionAuth("", memory.NewSessionStore(), users, nil)
		sid, err := a.CreateSession(ctx, u.ID)
		require.NoError(t, err)

		_, ok := a.CurrentUser(ctx, authn.Values{Cookies: map[string]string{"": sid}})
		assert.False(t, ok)
	})

	t.Run("store error is logged", func(t *testing.T) {
		var buf bytes.Buffer
		sessions := mocks.NewMockSessionStore(t)
		sessions.On("UserID", ctx, "sid").Return("", errors.New("redis down"))
		a := authn.NewSessionAuth(cookieName, sessions, memory.NewUserStore(), slog.New(slog.NewJSONHandler(&buf, nil)))

		_, ok := a.CurrentUser(ctx, withCookie("sid"))
		assert.False(t, ok)
		assert.Contains(t, buf.String(), "session lookup failed")
	})
}

func TestSessionAuth_DestroySessionID(t *testing.T) {
	ctx := context.Background()
	a, _ := newSessionAuth(t)

	assert.False(t, a.DestroySessionID(ctx, ""))
	assert.False(t, a.DestroySessionID(ctx, "never-issued"))
}

func TestSessionAuth_OverTableStore(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	u, err := users.Insert(ctx, "bob@example.com", "hash")
	require.NoError(t, err)
	a := authn.NewSessionAuth(cookieName, auth.NewTableSessionStore(users), users, nil)

	sid, err := a.CreateSession(ctx, u.ID)
	require.NoError(t, err)

	stored, err := users.Find(ctx, auth.FieldID, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SessionID)
	assert.Equal(t, sid, *stored.SessionID)

	assert.True(t, a.DestroySessionID(ctx, sid))
	stored, err = users.Find(ctx, auth.FieldID, u.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SessionID)
}
