// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Sentinel errors. They are returned wrapped in an oops error carrying a code;
// match them with errors.Is.
var (
	// ErrNotFound is returned when a requested user, session or token does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when registering an email that is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidToken is returned when a password reset token matches no user.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidField is returned when a store is asked to look up or update an
	// attribute it does not recognize.
	ErrInvalidField = errors.New("invalid field")

	// ErrMalformedCredentials is returned when a Basic authorization header
	// cannot be decoded into an email and a password.
	ErrMalformedCredentials = errors.New("malformed credentials")

	// ErrInvalidCredentials is returned by Login when the email is unknown or
	// the password is wrong. The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
