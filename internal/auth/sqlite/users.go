// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements auth.UserStore on SQLite through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/holomush/userauth/internal/auth"
)

// userRow is the gorm model of the users table.
type userRow struct {
	ID             string  `gorm:"primaryKey;size:26"`
	Email          string  `gorm:"uniqueIndex;not null"`
	HashedPassword string  `gorm:"not null"`
	SessionID      *string `gorm:"index"`
	ResetToken     *string `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toUser() *auth.User {
	return &auth.User{
		ID:             r.ID,
		Email:          r.Email,
		HashedPassword: r.HashedPassword,
		SessionID:      r.SessionID,
		ResetToken:     r.ResetToken,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// UserStore implements auth.UserStore with gorm.
type UserStore struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the users table. ":memory:" gives a private in-memory database.
func Open(path string) (*UserStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("path", path).Wrap(err)
	}

	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, oops.Code("SQLITE_OPEN_FAILED").With("path", path).Wrap(err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db)
}

// New wraps an existing gorm connection and migrates the users table.
func New(db *gorm.DB) (*UserStore, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, oops.Code("SQLITE_MIGRATE_FAILED").Wrap(err)
	}
	return &UserStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *UserStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return oops.Code("SQLITE_CLOSE_FAILED").Wrap(err)
	}
	return sqlDB.Close()
}

// Insert creates a user with a fresh ULID.
func (s *UserStore) Insert(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	row := &userRow{
		ID:             auth.NewUserID(),
		Email:          email,
		HashedPassword: hashedPassword,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isDuplicate(err) {
			return nil, auth.AlreadyExists(email)
		}
		return nil, oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return row.toUser(), nil
}

// Find returns the user whose field equals value.
func (s *UserStore) Find(ctx context.Context, field auth.Field, value string) (*auth.User, error) {
	if err := auth.ValidateLookupField(field); err != nil {
		return nil, err
	}

	var row userRow
	err := s.db.WithContext(ctx).Where(fmt.Sprintf("%s = ?", field), value).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.NotFound("USER_NOT_FOUND", field, value)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("field", string(field)).
			Wrap(err)
	}
	return row.toUser(), nil
}

// Update sets one column of the user row. A nil value stores NULL.
func (s *UserStore) Update(ctx context.Context, id string, field auth.Field, value *string) error {
	if err := auth.ValidateUpdate(field, value); err != nil {
		return err
	}

	var v any
	if value != nil {
		v = *value
	}

	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", id).
		Updates(map[string]any{string(field): v, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		if field == auth.FieldEmail && isDuplicate(res.Error) {
			return auth.AlreadyExists(*value)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("field", string(field)).
			With("id", id).
			Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.NotFound("USER_NOT_FOUND", auth.FieldID, id)
	}
	return nil
}

// ClearSession sets session_id to NULL on the row still holding sessionID.
func (s *UserStore) ClearSession(ctx context.Context, sessionID string) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"session_id": nil, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "clear session").
			Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.NotFound("SESSION_NOT_FOUND", auth.FieldSessionID, sessionID)
	}
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Compile-time interface check.
var (
	_ auth.UserStore      = (*UserStore)(nil)
	_ auth.SessionClearer = (*UserStore)(nil)
)
