// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// DatabaseStrategy keeps session tokens on the identity record itself, so
// sessions survive restarts and need no in-process state. It also carries
// the reset-token workflow.
type DatabaseStrategy struct {
	strategyBase
	*ResetService
	dir        Directory
	cookieName string
}

// NewDatabaseStrategy creates a DatabaseStrategy.
func NewDatabaseStrategy(dir Directory, hasher PasswordHasher, cookieName string, opts ...Option) (*DatabaseStrategy, error) {
	if cookieName == "" {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session cookie name is required")
	}
	reset, err := NewResetService(dir, hasher, opts...)
	if err != nil {
		return nil, err
	}
	return &DatabaseStrategy{
		strategyBase: strategyBase{settings: newSettings(opts), kind: KindDBSession},
		ResetService: reset,
		dir:          dir,
		cookieName:   cookieName,
	}, nil
}

// CookieName implements SessionStrategy.
func (s *DatabaseStrategy) CookieName() string {
	return s.cookieName
}

// SessionCookie returns the session token presented by r.
func (s *DatabaseStrategy) SessionCookie(r Request) (string, bool) {
	return sessionCookie(r, s.cookieName)
}

// CreateSession stores a fresh session token on the identity with email
// and returns it. Returns false if no such identity exists.
func (s *DatabaseStrategy) CreateSession(ctx context.Context, email string) (string, bool) {
	token, err := s.createSession(ctx, email)
	s.observer.ObserveSession(s.kind, "create", err == nil)
	if err != nil {
		s.logger.DebugContext(ctx, "session not created", "strategy", string(s.kind), "error", err)
		return "", false
	}
	return token, true
}

func (s *DatabaseStrategy) createSession(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", oops.Code("SESSION_EMPTY_EMAIL").Wrap(ErrNotFound)
	}
	id, err := s.dir.FindOne(ctx, Filter{FieldEmail: email})
	if err != nil {
		return "", err
	}
	token, err := s.newToken()
	if err != nil {
		return "", err
	}
	if err := UpdateByID(ctx, s.dir, id.ID, Fields{FieldSessionToken: token}); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").With("identity_id", id.ID).Wrap(err)
	}
	return token, nil
}

// IdentityFromSession returns the identity holding token.
func (s *DatabaseStrategy) IdentityFromSession(ctx context.Context, token string) (*Identity, bool) {
	if token == "" {
		return s.reject(ctx, OutcomeNoCredentials, nil)
	}
	id, err := s.dir.FindOne(ctx, Filter{FieldSessionToken: token})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.reject(ctx, OutcomeNoSession, err)
		}
		return s.reject(ctx, OutcomeError, err)
	}
	return s.accept(ctx, id)
}

// DestroySession clears the session token of identityID. Lookup and write
// failures are logged and otherwise ignored; only an empty ID returns false.
func (s *DatabaseStrategy) DestroySession(ctx context.Context, identityID string) bool {
	if identityID == "" {
		s.observer.ObserveSession(s.kind, "destroy", false)
		return false
	}
	if err := UpdateByID(ctx, s.dir, identityID, Fields{FieldSessionToken: ""}); err != nil {
		s.logger.DebugContext(ctx, "session revoke skipped", "identity_id", identityID, "error", err)
	}
	s.observer.ObserveSession(s.kind, "destroy", true)
	return true
}

// CurrentUser implements Strategy.
func (s *DatabaseStrategy) CurrentUser(ctx context.Context, r Request) (*Identity, bool) {
	token, ok := s.SessionCookie(r)
	if !ok {
		return s.reject(ctx, OutcomeNoCredentials, nil)
	}
	return s.IdentityFromSession(ctx, token)
}

// Login implements SessionStrategy.
func (s *DatabaseStrategy) Login(ctx context.Context, id *Identity) (string, bool) {
	if id == nil {
		return "", false
	}
	return s.CreateSession(ctx, id.Email)
}

// Logout implements SessionStrategy. The session is only revoked when the
// cookie still resolves to an identity.
func (s *DatabaseStrategy) Logout(ctx context.Context, r Request) bool {
	id, ok := s.CurrentUser(ctx, r)
	if !ok {
		return false
	}
	return s.DestroySession(ctx, id.ID)
}
