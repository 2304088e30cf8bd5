// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the auth stores.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/holomush/userauth/internal/auth"
)

// UserStore implements auth.UserStore with a map guarded by a mutex.
// Returned users are copies; mutating them does not affect the store.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*auth.User // id -> user
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*auth.User)}
}

// Insert creates a user with a fresh ID.
func (s *UserStore) Insert(_ context.Context, email, hashedPassword string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, auth.AlreadyExists(email)
		}
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:             auth.NewUserID(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[user.ID] = user
	return clone(user), nil
}

// Find returns the user whose field equals value.
func (s *UserStore) Find(_ context.Context, field auth.Field, value string) (*auth.User, error) {
	if err := auth.ValidateLookupField(field); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if field == auth.FieldID {
		if u, ok := s.users[value]; ok {
			return clone(u), nil
		}
		return nil, auth.NotFound("USER_NOT_FOUND", field, value)
	}

	for _, u := range s.users {
		if matches(u, field, value) {
			return clone(u), nil
		}
	}
	return nil, auth.NotFound("USER_NOT_FOUND", field, value)
}

// Update sets one attribute of the user with the given ID.
func (s *UserStore) Update(_ context.Context, id string, field auth.Field, value *string) error {
	if err := auth.ValidateUpdate(field, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.NotFound("USER_NOT_FOUND", auth.FieldID, id)
	}

	switch field {
	case auth.FieldEmail:
		for otherID, other := range s.users {
			if otherID != id && other.Email == *value {
				return auth.AlreadyExists(*value)
			}
		}
		u.Email = *value
	case auth.FieldHashedPassword:
		u.HashedPassword = *value
	case auth.FieldSessionID:
		u.SessionID = copyPtr(value)
	case auth.FieldResetToken:
		u.ResetToken = copyPtr(value)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearSession clears session_id on the user holding sessionID.
func (s *UserStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.SessionID != nil && *u.SessionID == sessionID {
			u.SessionID = nil
			u.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func matches(u *auth.User, field auth.Field, value string) bool {
	switch field {
	case auth.FieldEmail:
		return u.Email == value
	case auth.FieldSessionID:
		return u.SessionID != nil && *u.SessionID == value
	case auth.FieldResetToken:
		return u.ResetToken != nil && *u.ResetToken == value
	default:
		return false
	}
}

func clone(u *auth.User) *auth.User {
	c := *u
	c.SessionID = copyPtr(u.SessionID)
	c.ResetToken = copyPtr(u.ResetToken)
	return &c
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Compile-time interface check.
var (
	_ auth.UserStore      = (*UserStore)(nil)
	_ auth.SessionClearer = (*UserStore)(nil)
)
