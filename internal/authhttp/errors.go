// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authhttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/holomush/warden/internal/auth"
)

// StatusFor maps an auth error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, auth.ErrLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrValidation):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAlreadyExists), errors.Is(err, auth.ErrInvalidField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
