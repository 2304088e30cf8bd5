// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides user accounts, password hashing and the session and
// password-reset workflow.
//
// # Storage Contracts
//
// Stores are reached only through narrow, field-filtered interfaces:
//   - UserStore - insert, find by one attribute, update one attribute
//   - SessionStore - session ID to user ID mapping
//
// Implementations live in the memory, postgres, sqlite and redis subpackages.
// TableSessionStore adapts a UserStore into a SessionStore by keeping the
// session in the user row.
//
// # Service
//
// Service owns every mutation of a user's session ID and reset token:
// registration, login, logout and the two-step password reset. Lookups that
// identify a caller (Authenticate, ResolveSession) report absence as
// (nil, false) rather than as an error, so callers cannot tell an unknown
// email from a wrong password.
package auth
