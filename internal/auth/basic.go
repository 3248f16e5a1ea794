// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/warden/internal/credential"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// dummyBcryptHash plays the same role for bcrypt-only deployments.
//
//nolint:gosec // G101: not a credential.
const dummyBcryptHash = "$2a$12$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func dummyHashFor(h PasswordHasher) string {
	switch v := h.(type) {
	case *BcryptHasher:
		return dummyBcryptHash
	case *MultiHasher:
		if v.Preferred() == AlgorithmBcrypt {
			return dummyBcryptHash
		}
	}
	return dummyPasswordHash
}

// BasicStrategy authenticates every request from its Basic authorization
// header, looking the user up by email.
type BasicStrategy struct {
	strategyBase
	dir    Directory
	hasher PasswordHasher
	dummy  string
}

// NewBasicStrategy creates a BasicStrategy.
func NewBasicStrategy(dir Directory, hasher PasswordHasher, opts ...Option) (*BasicStrategy, error) {
	if dir == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("directory is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	return &BasicStrategy{
		strategyBase: strategyBase{settings: newSettings(opts), kind: KindBasic},
		dir:          dir,
		hasher:       hasher,
		dummy:        dummyHashFor(hasher),
	}, nil
}

// CredentialsFromHeader decodes a Basic header into user and password.
func (s *BasicStrategy) CredentialsFromHeader(header string) (user, pass string, err error) {
	return credential.Parse(header)
}

// UserFromCredentials returns the identity whose email is user and whose
// password hash matches pass.
func (s *BasicStrategy) UserFromCredentials(ctx context.Context, user, pass string) (*Identity, bool) {
	id, outcome, err := s.lookup(ctx, user, pass)
	if outcome != OutcomeOK {
		return s.reject(ctx, outcome, err)
	}
	return s.accept(ctx, id)
}

// CurrentUser implements Strategy.
func (s *BasicStrategy) CurrentUser(ctx context.Context, r Request) (*Identity, bool) {
	header, ok := s.AuthorizationHeader(r)
	if !ok {
		return s.reject(ctx, OutcomeNoCredentials, nil)
	}
	user, pass, err := s.CredentialsFromHeader(header)
	if err != nil {
		if errors.Is(err, credential.ErrMissingHeader) {
			return s.reject(ctx, OutcomeNoCredentials, err)
		}
		return s.reject(ctx, OutcomeMalformed, err)
	}
	return s.UserFromCredentials(ctx, user, pass)
}

func (s *BasicStrategy) lookup(ctx context.Context, user, pass string) (*Identity, Outcome, error) {
	if user == "" {
		return nil, OutcomeNoCredentials, nil
	}
	id, err := s.dir.FindOne(ctx, Filter{FieldEmail: user})
	if err != nil {
		CheckPassword(s.hasher, pass, s.dummy)
		if errors.Is(err, ErrNotFound) {
			return nil, OutcomeUnknownIdentity, err
		}
		return nil, OutcomeError, err
	}
	if !CheckPassword(s.hasher, pass, id.PasswordHash) {
		return nil, OutcomeBadPassword, nil
	}
	return id, OutcomeOK, nil
}
