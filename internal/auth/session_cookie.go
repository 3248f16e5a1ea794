// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// SessionStore maps session tokens to identity IDs.
type SessionStore interface {
	// Create issues a new token for identityID. Returns false for an empty ID.
	Create(identityID string) (string, bool)
	// Resolve returns the identity ID bound to token.
	Resolve(token string) (string, bool)
	// Destroy unbinds token. Returns false if it was not bound.
	Destroy(token string) bool
}

// CookieStrategy authenticates requests by a session cookie whose value is
// a token held in a SessionStore.
type CookieStrategy struct {
	strategyBase
	store      SessionStore
	dir        Directory
	cookieName string
}

// NewCookieStrategy creates a CookieStrategy reading the cookieName cookie.
func NewCookieStrategy(store SessionStore, dir Directory, cookieName string, opts ...Option) (*CookieStrategy, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session store is required")
	}
	if dir == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("directory is required")
	}
	if cookieName == "" {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session cookie name is required")
	}
	return &CookieStrategy{
		strategyBase: strategyBase{settings: newSettings(opts), kind: KindSession},
		store:        store,
		dir:          dir,
		cookieName:   cookieName,
	}, nil
}

// CookieName implements SessionStrategy.
func (s *CookieStrategy) CookieName() string {
	return s.cookieName
}

// SessionCookie returns the session token presented by r.
func (s *CookieStrategy) SessionCookie(r Request) (string, bool) {
	return sessionCookie(r, s.cookieName)
}

// CreateSession issues a token for identityID.
func (s *CookieStrategy) CreateSession(identityID string) (string, bool) {
	token, ok := s.store.Create(identityID)
	s.observer.ObserveSession(s.kind, "create", ok)
	return token, ok
}

// IdentityForSession returns the identity ID bound to token.
func (s *CookieStrategy) IdentityForSession(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	return s.store.Resolve(token)
}

// DestroySession revokes the session carried by r. It returns false, and
// changes nothing, when r carries no resolvable session cookie.
func (s *CookieStrategy) DestroySession(r Request) bool {
	token, ok := s.SessionCookie(r)
	if !ok {
		s.observer.ObserveSession(s.kind, "destroy", false)
		return false
	}
	if _, ok := s.IdentityForSession(token); !ok {
		s.observer.ObserveSession(s.kind, "destroy", false)
		return false
	}
	ok = s.store.Destroy(token)
	s.observer.ObserveSession(s.kind, "destroy", ok)
	return ok
}

// CurrentUser implements Strategy.
func (s *CookieStrategy) CurrentUser(ctx context.Context, r Request) (*Identity, bool) {
	token, ok := s.SessionCookie(r)
	if !ok {
		return s.reject(ctx, OutcomeNoCredentials, nil)
	}
	identityID, ok := s.IdentityForSession(token)
	if !ok {
		return s.reject(ctx, OutcomeNoSession, nil)
	}
	id, err := s.dir.FindOne(ctx, Filter{FieldID: identityID})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.reject(ctx, OutcomeUnknownIdentity, err)
		}
		return s.reject(ctx, OutcomeError, err)
	}
	return s.accept(ctx, id)
}

// Login implements SessionStrategy.
func (s *CookieStrategy) Login(_ context.Context, id *Identity) (string, bool) {
	if id == nil {
		return "", false
	}
	return s.CreateSession(id.ID)
}

// Logout implements SessionStrategy.
func (s *CookieStrategy) Logout(_ context.Context, r Request) bool {
	return s.DestroySession(r)
}
