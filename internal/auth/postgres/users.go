// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth.UserStore on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `
	SELECT id, email, hashed_password, session_id, reset_token, created_at, updated_at
	FROM users
	WHERE %s = $1`

// UserStore implements auth.UserStore over the users table created by the
// store migrations.
type UserStore struct {
	pool poolIface
}

// NewUserStore creates a UserStore. pool is usually a *pgxpool.Pool.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool}
}

// Insert creates a user with a fresh ULID.
func (s *UserStore) Insert(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &auth.User{
		ID:             auth.NewUserID(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.HashedPassword, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.AlreadyExists(email)
		}
		return nil, oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Find returns the user whose field equals value.
func (s *UserStore) Find(ctx context.Context, field auth.Field, value string) (*auth.User, error) {
	if err := auth.ValidateLookupField(field); err != nil {
		return nil, err
	}

	// field is one of the validated column names.
	row := s.pool.QueryRow(ctx, fmt.Sprintf(selectUser, field), value)

	var u auth.User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.SessionID, &u.ResetToken, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.NotFound("USER_NOT_FOUND", field, value)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("field", string(field)).
			Wrap(err)
	}
	return &u, nil
}

// Update sets one column of the user row. A nil value stores NULL.
func (s *UserStore) Update(ctx context.Context, id string, field auth.Field, value *string) error {
	if err := auth.ValidateUpdate(field, value); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s = $1, updated_at = now() WHERE id = $2`, field),
		value, id)
	if err != nil {
		if field == auth.FieldEmail && isUniqueViolation(err) {
			return auth.AlreadyExists(*value)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("field", string(field)).
			With("id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.NotFound("USER_NOT_FOUND", auth.FieldID, id)
	}
	return nil
}

// ClearSession sets session_id to NULL on the row still holding sessionID.
func (s *UserStore) ClearSession(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET session_id = NULL, updated_at = now() WHERE session_id = $1`,
		sessionID)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "clear session").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var (
	_ auth.UserStore      = (*UserStore)(nil)
	_ auth.SessionClearer = (*UserStore)(nil)
)
