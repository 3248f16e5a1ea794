// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authhttp exposes the auth strategies over net/http: a guard
// middleware, the session and password-reset endpoints, and the API server.
package authhttp

import (
	"context"
	"net/http"

	"github.com/holomush/warden/internal/auth"
)

// httpRequest adapts *http.Request to auth.Request.
type httpRequest struct {
	r *http.Request
}

// FromHTTP wraps r for use with a Strategy.
func FromHTTP(r *http.Request) auth.Request {
	return httpRequest{r: r}
}

func (h httpRequest) Header(name string) (string, bool) {
	values := h.r.Header.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (h httpRequest) Cookie(name string) (string, bool) {
	c, err := h.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (h httpRequest) Path() string {
	return h.r.URL.Path
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the guard, if any.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok && id != nil
}
