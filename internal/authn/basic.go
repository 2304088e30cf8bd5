// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import (
	"context"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
)

const basicPrefix = "Basic "

// CredentialVerifier checks an email and password. *auth.Service implements it.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, email, password string) (*auth.User, bool)
}

// BasicAuth authenticates requests carrying "Authorization: Basic
// base64(email:password)".
type BasicAuth struct {
	Base
	verifier CredentialVerifier
}

// NewBasicAuth creates a BasicAuth that checks credentials with verifier.
func NewBasicAuth(verifier CredentialVerifier) *BasicAuth {
	return &BasicAuth{verifier: verifier}
}

// ExtractBase64 returns the encoded part of a Basic authorization header.
func (a *BasicAuth) ExtractBase64(header string) (string, bool) {
	encoded, ok := strings.CutPrefix(header, basicPrefix)
	if !ok {
		return "", false
	}
	return encoded, true
}

// DecodeBase64 decodes standard base64 that must yield UTF-8 text.
func (a *BasicAuth) DecodeBase64(encoded string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// ExtractCredentials splits decoded credentials at the first colon, so
// passwords may contain colons.
func (a *BasicAuth) ExtractCredentials(decoded string) (email, password string, ok bool) {
	return strings.Cut(decoded, ":")
}

// ParseHeader decodes a Basic authorization header into email and password.
func (a *BasicAuth) ParseHeader(header string) (email, password string, err error) {
	encoded, ok := a.ExtractBase64(header)
	if !ok {
		return "", "", malformed("missing Basic scheme")
	}
	decoded, ok := a.DecodeBase64(encoded)
	if !ok {
		return "", "", malformed("invalid base64 payload")
	}
	email, password, ok = a.ExtractCredentials(decoded)
	if !ok {
		return "", "", malformed("missing ':' separator")
	}
	return email, password, nil
}

func malformed(reason string) error {
	return oops.Code("AUTH_MALFORMED_CREDENTIALS").
		With("reason", reason).
		Wrap(auth.ErrMalformedCredentials)
}

// UserFromCredentials returns the user if email and password are valid.
// Unknown users and wrong passwords both yield (nil, false).
func (a *BasicAuth) UserFromCredentials(ctx context.Context, email, password string) (*auth.User, bool) {
	if a.verifier == nil || email == "" || password == "" {
		return nil, false
	}
	return a.verifier.Authenticate(ctx, email, password)
}

// CurrentUser resolves the user from the Authorization header.
func (a *BasicAuth) CurrentUser(ctx context.Context, req Request) (*auth.User, bool) {
	header, ok := a.AuthorizationHeader(req)
	if !ok {
		return nil, false
	}
	email, password, err := a.ParseHeader(header)
	if err != nil {
		return nil, false
	}
	return a.UserFromCredentials(ctx, email, password)
}

// Compile-time interface check.
var _ Authenticator = (*BasicAuth)(nil)
