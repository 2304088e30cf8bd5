// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"

	"github.com/holomush/userauth/internal/auth"
)

// SessionStore implements auth.SessionStore with a map owned by the instance.
// A user holds at most one session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string // session id -> user id
	byUser   map[string]string // user id -> session id
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]string),
		byUser:   make(map[string]string),
	}
}

// Put records sessionID as belonging to userID, dropping any session the
// user already had.
func (s *SessionStore) Put(_ context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byUser[userID]; ok && prev != sessionID {
		delete(s.sessions, prev)
	}
	if owner, ok := s.sessions[sessionID]; ok && owner != userID {
		delete(s.byUser, owner)
	}
	s.sessions[sessionID] = userID
	s.byUser[userID] = sessionID
	return nil
}

// UserID returns the user mapped to sessionID.
func (s *SessionStore) UserID(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[sessionID]
	if !ok {
		return "", auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
	}
	return userID, nil
}

// Delete removes the mapping for sessionID.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.sessions[sessionID]
	if !ok {
		return auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
	}
	delete(s.sessions, sessionID)
	if s.byUser[userID] == sessionID {
		delete(s.byUser, userID)
	}
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
