// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/userauth/pkg/errutil"
)

// dummyPasswordHash is verified against when a user doesn't exist so that
// response time does not reveal whether an email is registered.
// It is not a real credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides registration, login, logout and password reset.
//
// Every read-modify-write of a user record runs under a lock keyed by the
// record's ID; registration is serialized per email.
type Service struct {
	users  UserStore
	hasher PasswordHasher
	logger *slog.Logger
	locks  *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for service events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new Service.
func NewService(users UserStore, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}

	s := &Service{
		users:  users,
		hasher: hasher,
		logger: slog.Default(),
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger cannot be nil")
	}
	return s, nil
}

// Register creates a user with a hashed password.
// Returns ErrAlreadyExists if the email is taken; the existing user is left untouched.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if email == "" {
		return nil, oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}

	unlock := s.locks.Lock("email:" + email)
	defer unlock()

	_, err := s.users.Find(ctx, FieldEmail, email)
	if err == nil {
		return nil, AlreadyExists(email)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.Insert(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "email", email)
	return user, nil
}

// Authenticate returns the user identified by email if password matches.
// Unknown emails and wrong passwords both yield (nil, false), and take the
// same amount of hashing work.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, bool) {
	if email == "" || password == "" {
		return nil, false
	}

	user, err := s.users.Find(ctx, FieldEmail, email)
	targetHash := dummyPasswordHash
	switch {
	case err == nil:
		targetHash = user.HashedPassword
	case errors.Is(err, ErrNotFound):
		user = nil
	default:
		errutil.LogError(ctx, s.logger, "user lookup failed during authentication", err)
		return nil, false
	}

	// Always verify, even against the dummy hash.
	valid, err := s.hasher.Verify(password, targetHash)
	if err != nil {
		if user != nil {
			errutil.LogError(ctx, s.logger, "stored password hash is invalid",
				oops.With("user_id", user.ID).Wrap(err))
		}
		return nil, false
	}
	if user == nil || !valid {
		return nil, false
	}

	s.upgradeHash(ctx, user, password)
	return user, true
}

// ValidLogin reports whether password is correct for the user with email.
func (s *Service) ValidLogin(ctx context.Context, email, password string) bool {
	_, ok := s.Authenticate(ctx, email, password)
	return ok
}

// Login checks credentials and, on success, starts a new session for the
// user, replacing any previous one. Returns the new session ID.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, ok := s.Authenticate(ctx, email, password)
	if !ok {
		return "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	return s.startSession(ctx, user.ID)
}

// CreateSession starts a new session for the user with email without checking
// credentials. Callers invoke it after ValidLogin succeeds.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.Find(ctx, FieldEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}
	return s.startSession(ctx, user.ID)
}

func (s *Service) startSession(ctx context.Context, userID string) (string, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return "", err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.users.Update(ctx, userID, FieldSessionID, &sessionID); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session id").
			With("user_id", userID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session created", "user_id", userID)
	return sessionID, nil
}

// Logout clears the user's session. Logging out a user that has no session,
// or that does not exist, is not an error.
func (s *Service) Logout(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	err := s.users.Update(ctx, userID, FieldSessionID, nil)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "clear session id").
			With("user_id", userID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session destroyed", "user_id", userID)
	return nil
}

// User returns the user with the given ID, or ErrNotFound.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, NotFound("USER_NOT_FOUND", FieldID, id)
	}
	user, err := s.users.Find(ctx, FieldID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "find user by id").
			Wrap(err)
	}
	return user, nil
}

// ResolveSession returns the user holding sessionID.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*User, bool) {
	if sessionID == "" {
		return nil, false
	}
	user, err := s.users.Find(ctx, FieldSessionID, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(ctx, s.logger, "session lookup failed", err)
		}
		return nil, false
	}
	return user, true
}

// RequestPasswordReset issues a reset token for the user with email and
// returns it. Delivering the token is the caller's job. Session state is not touched.
// Returns ErrNotFound if no user has the email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.Find(ctx, FieldEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := NewResetToken()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").Wrap(err)
	}

	unlock := s.locks.Lock(user.ID)
	defer unlock()

	if err := s.users.Update(ctx, user.ID, FieldResetToken, &token); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID)
	return token, nil
}

// ApplyPasswordReset replaces the password of the user holding token and
// invalidates the token. Returns ErrInvalidToken if no user holds it.
func (s *Service) ApplyPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return invalidToken()
	}

	user, err := s.users.Find(ctx, FieldResetToken, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidToken()
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	unlock := s.locks.Lock(user.ID)
	defer unlock()

	// Re-read under the lock: a concurrent reset may have consumed the token.
	current, err := s.users.Find(ctx, FieldID, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidToken()
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "reload user").
			Wrap(err)
	}
	if current.ResetToken == nil || *current.ResetToken != token {
		return invalidToken()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	// Consume the token first: a failure after this point leaves the old
	// password in place and the token spent, never a reusable token.
	if err := s.users.Update(ctx, current.ID, FieldResetToken, nil); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "clear reset token").
			With("user_id", current.ID).
			Wrap(err)
	}
	if err := s.users.Update(ctx, current.ID, FieldHashedPassword, &hash); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "store password hash").
			With("user_id", current.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset applied", "user_id", current.ID)
	return nil
}

func invalidToken() error {
	return oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
}

// upgradeHash re-hashes password with the current algorithm when the stored
// hash is outdated. Failures are logged; login proceeds regardless.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.HashedPassword) {
		return
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(ctx, s.logger, "password hash upgrade failed", err)
		return
	}

	unlock := s.locks.Lock(user.ID)
	defer unlock()

	if err := s.users.Update(ctx, user.ID, FieldHashedPassword, &hash); err != nil {
		errutil.LogError(ctx, s.logger, "password hash upgrade failed",
			oops.With("user_id", user.ID).Wrap(err))
		return
	}
	user.HashedPassword = hash
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID)
}
