// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package storetest holds behavioural tests shared by every auth store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
)

func ptr(s string) *string { return &s }

// UserStore runs the auth.UserStore contract against stores built by newStore.
// Each subtest gets a fresh, empty store.
func UserStore(t *testing.T, newStore func(t *testing.T) auth.UserStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert then find by each lookup field", func(t *testing.T) {
		s := newStore(t)
		u, err := s.Insert(ctx, "bob@example.com", "hash-1")
		require.NoError(t, err)
		require.NotEmpty(t, u.ID)
		assert.Equal(t, "bob@example.com", u.Email)
		assert.Equal(t, "hash-1", u.HashedPassword)
		assert.Nil(t, u.SessionID)
		assert.Nil(t, u.ResetToken)

		require.NoError(t, s.Update(ctx, u.ID, auth.FieldSessionID, ptr("sid-1")))
		require.NoError(t, s.Update(ctx, u.ID, auth.FieldResetToken, ptr("tok-1")))

		for field, value := range map[auth.Field]string{
			auth.FieldID:         u.ID,
			auth.FieldEmail:      "bob@example.com",
			auth.FieldSessionID:  "sid-1",
			auth.FieldResetToken: "tok-1",
		} {
			got, err := s.Find(ctx, field, value)
			require.NoError(t, err, field)
			assert.Equal(t, u.ID, got.ID, field)
			require.NotNil(t, got.SessionID)
			assert.Equal(t, "sid-1", *got.SessionID)
			require.NotNil(t, got.ResetToken)
			assert.Equal(t, "tok-1", *got.ResetToken)
		}
	})

	t.Run("find miss returns not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Find(ctx, auth.FieldEmail, "ghost@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("find by non-lookup field is invalid", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Find(ctx, auth.FieldHashedPassword, "x")
		assert.ErrorIs(t, err, auth.ErrInvalidField)
		_, err = s.Find(ctx, auth.Field("nickname"), "x")
		assert.ErrorIs(t, err, auth.ErrInvalidField)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, "bob@example.com", "hash-1")
		require.NoError(t, err)
		_, err = s.Insert(ctx, "bob@example.com", "hash-2")
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)

		got, err := s.Find(ctx, auth.FieldEmail, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, "hash-1", got.HashedPassword)
	})

	t.Run("update to a taken email rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, "a@example.com", "h")
		require.NoError(t, err)
		b, err := s.Insert(ctx, "b@example.com", "h")
		require.NoError(t, err)

		err = s.Update(ctx, b.ID, auth.FieldEmail, ptr("a@example.com"))
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)
	})

	t.Run("nil clears nullable field", func(t *testing.T) {
		s := newStore(t)
		u, err := s.Insert(ctx, "bob@example.com", "h")
		require.NoError(t, err)
		require.NoError(t, s.Update(ctx, u.ID, auth.FieldSessionID, ptr("sid-1")))
		require.NoError(t, s.Update(ctx, u.ID, auth.FieldSessionID, nil))

		got, err := s.Find(ctx, auth.FieldID, u.ID)
		require.NoError(t, err)
		assert.Nil(t, got.SessionID)
		_, err = s.Find(ctx, auth.FieldSessionID, "sid-1")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("update of unknown user returns not found", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, auth.NewUserID(), auth.FieldHashedPassword, ptr("h"))
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("update of non-updatable field is invalid", func(t *testing.T) {
		s := newStore(t)
		u, err := s.Insert(ctx, "bob@example.com", "h")
		require.NoError(t, err)
		err = s.Update(ctx, u.ID, auth.FieldID, ptr("other"))
		assert.ErrorIs(t, err, auth.ErrInvalidField)
	})
}

// SessionStore runs the auth.SessionStore contract. userID must name an
// existing user in stores that validate it; newStore is called once per subtest.
func SessionStore(t *testing.T, newStore func(t *testing.T) (auth.SessionStore, string)) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then resolve", func(t *testing.T) {
		s, userID := newStore(t)
		require.NoError(t, s.Put(ctx, "sid-1", userID))
		got, err := s.UserID(ctx, "sid-1")
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("unknown session", func(t *testing.T) {
		s, _ := newStore(t)
		_, err := s.UserID(ctx, "missing")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "missing"), auth.ErrNotFound)
	})

	t.Run("delete removes mapping", func(t *testing.T) {
		s, userID := newStore(t)
		require.NoError(t, s.Put(ctx, "sid-1", userID))
		require.NoError(t, s.Delete(ctx, "sid-1"))
		_, err := s.UserID(ctx, "sid-1")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "sid-1"), auth.ErrNotFound)
	})

	t.Run("second put for the same user replaces the first", func(t *testing.T) {
		s, userID := newStore(t)
		require.NoError(t, s.Put(ctx, "sid-1", userID))
		require.NoError(t, s.Put(ctx, "sid-2", userID))

		_, err := s.UserID(ctx, "sid-1")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		got, err := s.UserID(ctx, "sid-2")
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})
}
