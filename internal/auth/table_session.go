// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// TableSessionStore keeps the session mapping in the session_id column of the
// user table. A user holds at most one session: Put overwrites the previous one.
type TableSessionStore struct {
	users UserStore
}

// NewTableSessionStore creates a SessionStore over users.
func NewTableSessionStore(users UserStore) *TableSessionStore {
	return &TableSessionStore{users: users}
}

// Put records sessionID on the user row.
func (s *TableSessionStore) Put(ctx context.Context, sessionID, userID string) error {
	if err := s.users.Update(ctx, userID, FieldSessionID, &sessionID); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// UserID returns the ID of the user holding sessionID.
func (s *TableSessionStore) UserID(ctx context.Context, sessionID string) (string, error) {
	user, err := s.users.Find(ctx, FieldSessionID, sessionID)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// Delete clears sessionID from the user holding it. Stores implementing
// SessionClearer clear it with a compare-and-clear; others fall back to a
// lookup followed by an unconditional update.
func (s *TableSessionStore) Delete(ctx context.Context, sessionID string) error {
	if clearer, ok := s.users.(SessionClearer); ok {
		if err := clearer.ClearSession(ctx, sessionID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
		}
		return nil
	}

	user, err := s.users.Find(ctx, FieldSessionID, sessionID)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, user.ID, FieldSessionID, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return oops.Code("SESSION_DELETE_FAILED").
			With("user_id", user.ID).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ SessionStore = (*TableSessionStore)(nil)
