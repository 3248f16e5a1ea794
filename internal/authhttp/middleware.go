// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authhttp

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/warden/internal/auth"
)

var tracer = otel.Tracer("github.com/holomush/warden/internal/authhttp")

// Guard enforces a Strategy in front of next.
//
// When paths is non-nil it decides which paths are exempt; otherwise the
// strategy's exact-match RequireAuth is used with excluded. A request with
// neither an Authorization header nor a session cookie gets 401, and one
// whose credentials do not resolve to an identity gets 403.
type Guard struct {
	strategy auth.Strategy
	excluded []string
	paths    *auth.PathSet
	logger   *slog.Logger
}

// NewGuard creates a Guard. logger may be nil.
func NewGuard(strategy auth.Strategy, excluded []string, paths *auth.PathSet, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{strategy: strategy, excluded: excluded, paths: paths, logger: logger}
}

func (g *Guard) requireAuth(path string) bool {
	if g.paths != nil {
		return !g.paths.Excludes(path)
	}
	return g.strategy.RequireAuth(path, g.excluded)
}

func (g *Guard) hasCredentials(req auth.Request) bool {
	if _, ok := g.strategy.AuthorizationHeader(req); ok {
		return true
	}
	if ss, ok := g.strategy.(auth.SessionStrategy); ok {
		if v, ok := req.Cookie(ss.CookieName()); ok && v != "" {
			return true
		}
	}
	return false
}

// Wrap returns next behind the guard.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "auth.guard",
			trace.WithAttributes(
				attribute.String("auth.strategy", string(g.strategy.Kind())),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()
		r = r.WithContext(ctx)

		req := FromHTTP(r)
		if !g.requireAuth(req.Path()) {
			span.SetAttributes(attribute.Bool("auth.required", false))
			next.ServeHTTP(w, r)
			return
		}
		span.SetAttributes(attribute.Bool("auth.required", true))
		if !g.hasCredentials(req) {
			g.logger.DebugContext(ctx, "request without credentials", "path", r.URL.Path)
			span.SetStatus(codes.Error, "no credentials")
			writeError(w, http.StatusUnauthorized, "")
			return
		}
		id, ok := g.strategy.CurrentUser(ctx, req)
		if !ok {
			span.SetStatus(codes.Error, "identity not resolved")
			writeError(w, http.StatusForbidden, "")
			return
		}
		span.SetAttributes(attribute.String("auth.identity_id", id.ID))
		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
	})
}
