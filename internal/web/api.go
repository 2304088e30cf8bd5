// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/authn"
	"github.com/holomush/userauth/internal/observability"
)

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Status string `json:"status"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *auth.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (s *Server) apiHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/users/me", s.handleMe)
	mux.HandleFunc("GET /api/v1/users/{id}", s.handleUser)
	mux.HandleFunc("GET /api/v1/unauthorized", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /api/v1/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusForbidden)
	})

	// Store-backed sessions exist only with session authentication.
	if sa, ok := s.authenticator.(*authn.SessionAuth); ok {
		mux.HandleFunc("POST /api/v1/auth_session/login", func(w http.ResponseWriter, r *http.Request) {
			s.handleSessionLogin(w, r, sa)
		})
		mux.HandleFunc("DELETE /api/v1/auth_session/logout", func(w http.ResponseWriter, r *http.Request) {
			s.handleSessionLogout(w, r, sa)
		})
	}

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound)
	})
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, StatusResponse{Status: "OK"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := authn.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.User(r.Context(), r.PathValue("id"))
	if errors.Is(err, auth.ErrNotFound) {
		writeError(w, http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, "user lookup failed", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleSessionLogin(w http.ResponseWriter, r *http.Request, sa *authn.SessionAuth) {
	email := r.PostFormValue("email")
	if email == "" {
		s.writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "email missing"})
		return
	}
	password := r.PostFormValue("password")
	if password == "" {
		s.writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "password missing"})
		return
	}

	user, ok := s.svc.Authenticate(r.Context(), email, password)
	if !ok {
		writeError(w, http.StatusUnauthorized)
		return
	}

	sessionID, err := sa.CreateSession(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, r, "session creation failed", err)
		return
	}
	s.recorder.Session(observability.SessionCreated)

	s.setSessionCookie(w, sa.CookieName, sessionID)
	s.writeJSON(w, r, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleSessionLogout(w http.ResponseWriter, r *http.Request, sa *authn.SessionAuth) {
	if !sa.DestroySession(r.Context(), authn.FromHTTP(r)) {
		writeError(w, http.StatusNotFound)
		return
	}
	s.recorder.Session(observability.SessionDestroyed)
	s.clearSessionCookie(w, sa.CookieName)
	s.writeJSON(w, r, http.StatusOK, struct{}{})
}
