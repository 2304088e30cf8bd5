// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis implements auth.SessionStore on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "userauth:session"

// SessionStore keeps session ID to user ID mappings as plain string keys
// named <prefix>:<session id>. The user's current session ID is indexed
// under <prefix>:user:<user id> so a new session evicts the previous one.
type SessionStore struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) { s.prefix = prefix }
}

// WithTTL expires sessions after ttl. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *SessionStore) { s.ttl = ttl }
}

// NewSessionStore creates a SessionStore over client.
func NewSessionStore(client goredis.Cmdable, opts ...Option) *SessionStore {
	s := &SessionStore{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}

func (s *SessionStore) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", s.prefix, userID)
}

// Put records sessionID as belonging to userID and deletes the session the
// user held before. The index swap is a single SET ... GET, so concurrent
// puts for one user each evict a distinct predecessor.
func (s *SessionStore) Put(ctx context.Context, sessionID, userID string) error {
	if err := s.client.Set(ctx, s.key(sessionID), userID, s.ttl).Err(); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "redis set").
			With("user_id", userID).
			Wrap(err)
	}

	prev, err := s.client.SetArgs(ctx, s.userKey(userID), sessionID, goredis.SetArgs{
		TTL: s.ttl,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "redis set user index").
			With("user_id", userID).
			Wrap(err)
	}
	if prev == "" || prev == sessionID {
		return nil
	}

	if err := s.client.Del(ctx, s.key(prev)).Err(); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "redis del previous session").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// UserID returns the user mapped to sessionID.
func (s *SessionStore) UserID(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
	}
	if err != nil {
		return "", oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "redis get").
			Wrap(err)
	}
	return userID, nil
}

// Delete removes the mapping for sessionID.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "redis del").
			Wrap(err)
	}
	if n == 0 {
		return auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
	}
	return nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
