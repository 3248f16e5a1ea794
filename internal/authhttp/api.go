// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authhttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/pkg/errutil"
)

// Prefix is where the API routes are mounted.
const Prefix = "/api/v1"

// SessionRevoker drops every session an identity holds.
type SessionRevoker interface {
	DestroyAll(identityID string) int
}

// APIConfig carries the collaborators of the API handlers.
type APIConfig struct {
	Strategy auth.Strategy
	Accounts *auth.Accounts
	Resets   *auth.ResetService
	// Excluded is the exact-match exclusion list, used when Paths is nil.
	Excluded []string
	Paths    *auth.PathSet
	// Revoker, when set, is told to drop the sessions of an identity
	// whose password was reset.
	Revoker SessionRevoker
	Logger  *slog.Logger
	// Secure marks the session cookie Secure.
	Secure bool
}

// API serves the authentication endpoints.
type API struct {
	cfg     APIConfig
	session auth.SessionStrategy
	guard   *Guard
	logger  *slog.Logger
}

// NewAPI validates cfg and creates an API.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Strategy == nil {
		return nil, oops.Code("API_INVALID_CONFIG").Errorf("strategy is required")
	}
	if cfg.Accounts == nil {
		return nil, oops.Code("API_INVALID_CONFIG").Errorf("accounts service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		cfg:    cfg,
		guard:  NewGuard(cfg.Strategy, cfg.Excluded, cfg.Paths, logger),
		logger: logger,
	}
	if ss, ok := cfg.Strategy.(auth.SessionStrategy); ok {
		a.session = ss
	}
	return a, nil
}

// Handler returns the guarded route tree.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Prefix+"/status", a.handleStatus)
	mux.HandleFunc("GET "+Prefix+"/unauthorized", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusUnauthorized, "")
	})
	mux.HandleFunc("GET "+Prefix+"/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusForbidden, "")
	})
	mux.HandleFunc("GET "+Prefix+"/users/me", a.handleMe)
	mux.HandleFunc("POST "+Prefix+"/users", a.handleRegister)
	if a.session != nil {
		mux.HandleFunc("POST "+Prefix+"/auth_session/login", a.handleLogin)
		mux.HandleFunc("DELETE "+Prefix+"/auth_session/logout", a.handleLogout)
	}
	if a.cfg.Resets != nil {
		mux.HandleFunc("POST "+Prefix+"/reset_password", a.handleIssueReset)
		mux.HandleFunc("PUT "+Prefix+"/reset_password", a.handleConsumeReset)
	}
	return a.guard.Wrap(mux)
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type messageResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type resetResponse struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

func (a *API) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: id.ID, Email: id.Email})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	email, password := r.FormValue("email"), r.FormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	id, err := a.cfg.Accounts.RegisterUser(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	case err != nil:
		a.fail(w, r, "register user failed", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Email: id.Email, Message: "user created"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password := r.FormValue("email"), r.FormValue("password")
	switch {
	case email == "":
		writeError(w, http.StatusBadRequest, "email missing")
		return
	case password == "":
		writeError(w, http.StatusBadRequest, "password missing")
		return
	}

	id, err := a.cfg.Accounts.Authenticate(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "no user found for this email")
		return
	case errors.Is(err, auth.ErrValidation):
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	case err != nil:
		a.fail(w, r, "login failed", err)
		return
	}

	token, ok := a.session.Login(r.Context(), id)
	if !ok {
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.session.CookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, userResponse{ID: id.ID, Email: id.Email})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !a.session.Logout(r.Context(), FromHTTP(r)) {
		writeError(w, http.StatusNotFound, "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.session.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.Secure,
	})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (a *API) handleIssueReset(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token, err := a.cfg.Resets.IssueResetToken(r.Context(), email)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(a.logger, "issue reset token failed", err)
		}
		writeError(w, http.StatusForbidden, "")
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Email: email, ResetToken: token})
}

func (a *API) handleConsumeReset(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token := r.FormValue("reset_token")
	password := r.FormValue("new_password")

	id, err := a.cfg.Resets.ValidateResetToken(r.Context(), token)
	if err != nil || id.Email != email {
		writeError(w, http.StatusForbidden, "")
		return
	}
	if err := a.cfg.Resets.ConsumeResetToken(r.Context(), token, password); err != nil {
		if !errors.Is(err, auth.ErrValidation) {
			errutil.LogError(a.logger, "consume reset token failed", err)
		}
		writeError(w, http.StatusForbidden, "")
		return
	}
	a.revoke(r, id)
	writeJSON(w, http.StatusOK, messageResponse{Email: email, Message: "Password updated"})
}

// revoke ends the sessions of an identity after its password changed.
func (a *API) revoke(r *http.Request, id *auth.Identity) {
	switch {
	case a.cfg.Revoker != nil:
		if n := a.cfg.Revoker.DestroyAll(id.ID); n > 0 {
			a.logger.InfoContext(r.Context(), "sessions revoked after password reset", "identity_id", id.ID, "count", n)
		}
	default:
		if db, ok := a.cfg.Strategy.(*auth.DatabaseStrategy); ok {
			db.DestroySession(r.Context(), id.ID)
		}
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(a.logger, msg, err)
	} else {
		a.logger.DebugContext(r.Context(), msg, "error", err)
	}
	writeError(w, status, "")
}
