// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/observability"
	"github.com/holomush/userauth/pkg/errutil"
)

// MessageResponse carries a human-readable message.
type MessageResponse struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

// EmailResponse is returned by GET /profile.
type EmailResponse struct {
	Email string `json:"email"`
}

// ResetTokenResponse is returned by POST /reset_password.
type ResetTokenResponse struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, MessageResponse{Message: "Bienvenue"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		s.recorder.Registration(observability.ResultFailure)
		s.writeJSON(w, r, http.StatusBadRequest, MessageResponse{Message: "email and password are required"})
		return
	}

	user, err := s.svc.Register(r.Context(), email, password)
	s.recorder.Registration(observability.Outcome(err))
	switch {
	case err == nil:
		s.writeJSON(w, r, http.StatusOK, MessageResponse{Email: user.Email, Message: "user created"})
	case errors.Is(err, auth.ErrAlreadyExists):
		s.writeJSON(w, r, http.StatusBadRequest, MessageResponse{Message: "email already registered"})
	default:
		s.internalError(w, r, "registration failed", err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	if !s.svc.ValidLogin(r.Context(), email, password) {
		writeError(w, http.StatusUnauthorized)
		return
	}

	sessionID, err := s.svc.CreateSession(r.Context(), email)
	if err != nil {
		s.internalError(w, r, "session creation failed", err)
		return
	}
	s.recorder.Session(observability.SessionCreated)

	s.setSessionCookie(w, s.cookieName, sessionID)
	s.writeJSON(w, r, http.StatusOK, MessageResponse{Email: email, Message: "logged in"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	if !ok {
		writeError(w, http.StatusForbidden)
		return
	}
	if err := s.svc.Logout(r.Context(), user.ID); err != nil {
		s.internalError(w, r, "logout failed", err)
		return
	}
	s.recorder.Session(observability.SessionDestroyed)

	s.clearSessionCookie(w, s.cookieName)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	if !ok {
		writeError(w, http.StatusForbidden)
		return
	}
	s.writeJSON(w, r, http.StatusOK, EmailResponse{Email: user.Email})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	token, err := s.svc.RequestPasswordReset(r.Context(), email)
	s.recorder.PasswordReset(observability.ResetRequested, observability.Outcome(err))
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(r.Context(), s.logger, "password reset request failed", err)
		}
		writeError(w, http.StatusForbidden)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ResetTokenResponse{Email: email, ResetToken: token})
}

func (s *Server) handleResetApply(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	token := r.PostFormValue("reset_token")
	password := r.PostFormValue("new_password")

	err := s.svc.ApplyPasswordReset(r.Context(), token, password)
	s.recorder.PasswordReset(observability.ResetApplied, observability.Outcome(err))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			errutil.LogError(r.Context(), s.logger, "password reset failed", err)
		}
		writeError(w, http.StatusForbidden)
		return
	}
	s.writeJSON(w, r, http.StatusOK, MessageResponse{Email: email, Message: "Password updated"})
}

// sessionUser resolves the user-row session named by the request cookie.
func (s *Server) sessionUser(r *http.Request) (*auth.User, bool) {
	c, err := r.Cookie(s.cookieName)
	if err != nil {
		return nil, false
	}
	return s.svc.ResolveSession(r.Context(), c.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, name, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.tlsConfig != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.tlsConfig != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
