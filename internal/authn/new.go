// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
)

// Kind names an authentication scheme.
type Kind string

// Supported schemes.
const (
	KindNone    Kind = "none"
	KindBasic   Kind = "basic"
	KindSession Kind = "session"
)

// Deps are the collaborators New wires into the chosen scheme.
type Deps struct {
	CookieName string
	Verifier   CredentialVerifier // basic
	Sessions   auth.SessionStore  // session
	Users      auth.UserFinder    // session
	Logger     *slog.Logger
}

// New builds the Authenticator for kind. "" and "none" disable
// authentication and return a nil Authenticator.
func New(kind Kind, deps Deps) (Authenticator, error) {
	switch kind {
	case "", KindNone:
		return nil, nil
	case KindBasic:
		if deps.Verifier == nil {
			return nil, oops.Code("AUTHN_CONFIG_INVALID").With("kind", string(kind)).
				Errorf("credential verifier is required")
		}
		a := NewBasicAuth(deps.Verifier)
		a.CookieName = deps.CookieName
		return a, nil
	case KindSession:
		if deps.Sessions == nil || deps.Users == nil {
			return nil, oops.Code("AUTHN_CONFIG_INVALID").With("kind", string(kind)).
				Errorf("session store and user finder are required")
		}
		return NewSessionAuth(deps.CookieName, deps.Sessions, deps.Users, deps.Logger), nil
	default:
		return nil, oops.Code("AUTHN_CONFIG_INVALID").With("kind", string(kind)).
			Errorf("unknown authentication type %q", kind)
	}
}
