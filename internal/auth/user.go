// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account.
type User struct {
	ID             string
	Email          string
	HashedPassword string
	SessionID      *string // nil when logged out
	ResetToken     *string // nil when no reset is pending
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSession reports whether the user currently holds a live session.
func (u *User) HasSession() bool {
	return u.SessionID != nil && *u.SessionID != ""
}

// ResetPending reports whether a password reset token has been issued and not yet used.
func (u *User) ResetPending() bool {
	return u.ResetToken != nil && *u.ResetToken != ""
}

// Field names a user attribute in a UserStore.
type Field string

// User attributes known to stores.
const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionID      Field = "session_id"
	FieldResetToken     Field = "reset_token"
)

// Lookupable reports whether users can be found by this field.
func (f Field) Lookupable() bool {
	switch f {
	case FieldID, FieldEmail, FieldSessionID, FieldResetToken:
		return true
	default:
		return false
	}
}

// Updatable reports whether this field may be changed after insert.
func (f Field) Updatable() bool {
	switch f {
	case FieldEmail, FieldHashedPassword, FieldSessionID, FieldResetToken:
		return true
	default:
		return false
	}
}

// Nullable reports whether the field may be cleared.
func (f Field) Nullable() bool {
	return f == FieldSessionID || f == FieldResetToken
}

// ValidateLookupField returns an ErrInvalidField error unless f can be used with Find.
func ValidateLookupField(f Field) error {
	if !f.Lookupable() {
		return oops.Code("STORE_INVALID_FIELD").
			With("field", string(f)).
			With("operation", "find").
			Wrap(ErrInvalidField)
	}
	return nil
}

// ValidateUpdate returns an ErrInvalidField error unless value may be written to f.
func ValidateUpdate(f Field, value *string) error {
	if !f.Updatable() {
		return oops.Code("STORE_INVALID_FIELD").
			With("field", string(f)).
			With("operation", "update").
			Wrap(ErrInvalidField)
	}
	if value == nil && !f.Nullable() {
		return oops.Code("STORE_INVALID_FIELD").
			With("field", string(f)).
			Errorf("field %s cannot be null", f)
	}
	return nil
}

// NewUserID returns a fresh user identifier.
func NewUserID() string {
	return ulid.Make().String()
}

// UserFinder looks users up by a single attribute.
type UserFinder interface {
	// Find returns the user whose field equals value.
	// Returns ErrNotFound if no user matches and ErrInvalidField if field is not lookupable.
	Find(ctx context.Context, field Field, value string) (*User, error)
}

// UserStore is the table of user records.
type UserStore interface {
	UserFinder

	// Insert creates a user with a fresh ID.
	// Returns ErrAlreadyExists if the email is taken.
	Insert(ctx context.Context, email, hashedPassword string) (*User, error)

	// Update sets a single attribute of the user with the given ID. A nil value
	// clears a nullable attribute.
	// Returns ErrInvalidField for attributes outside the updatable set and
	// ErrNotFound if no user has the ID.
	Update(ctx context.Context, id string, field Field, value *string) error
}

// SessionClearer is implemented by user stores that can clear a session
// column in one conditional write. TableSessionStore uses it so a logout
// cannot wipe a session issued by a concurrent login.
type SessionClearer interface {
	// ClearSession sets session_id to NULL on the row holding sessionID.
	// Returns ErrNotFound when no row holds it.
	ClearSession(ctx context.Context, sessionID string) error
}

// SessionStore maps session identifiers to user identifiers.
type SessionStore interface {
	// Put records sessionID as belonging to userID. A user holds at most
	// one session: any session previously put for userID stops resolving.
	Put(ctx context.Context, sessionID, userID string) error

	// UserID returns the user mapped to sessionID, or ErrNotFound.
	UserID(ctx context.Context, sessionID string) (string, error)

	// Delete removes the mapping for sessionID, or returns ErrNotFound.
	Delete(ctx context.Context, sessionID string) error
}

// NotFound wraps ErrNotFound with a code and the lookup that missed.
func NotFound(code string, field Field, value string) error {
	b := oops.Code(code).With("field", string(field))
	// Token-like values are not attached to errors; they end up in logs.
	if field == FieldID || field == FieldEmail {
		b = b.With("value", value)
	}
	return b.Wrap(ErrNotFound)
}

// AlreadyExists wraps ErrAlreadyExists for a taken email.
func AlreadyExists(email string) error {
	return oops.Code("AUTH_ALREADY_EXISTS").
		With("email", email).
		Wrap(ErrAlreadyExists)
}
