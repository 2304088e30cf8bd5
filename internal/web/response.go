// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/userauth/pkg/errutil"
)

// ErrorResponse is the body of every error status.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errorMessages = map[int]string{
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusInternalServerError: "Internal server error",
}

// writeJSON writes v with the given status. Encoding failures are logged.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := encodeJSON(w, status, v); err != nil {
		errutil.LogError(r.Context(), s.logger, "failed to write response", err)
	}
}

func encodeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return oops.Code("WEB_ENCODE_FAILED").Wrap(err)
	}
	return nil
}

// writeError writes {"error": ...} for status.
func writeError(w http.ResponseWriter, status int) {
	msg, ok := errorMessages[status]
	if !ok {
		msg = http.StatusText(status)
	}
	_ = encodeJSON(w, status, ErrorResponse{Error: msg}) //nolint:errcheck // client gone
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	errutil.LogError(r.Context(), s.logger, msg, err)
	writeError(w, http.StatusInternalServerError)
}
