// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// ErrLocked is returned while a principal is locked out by the Throttle.
var ErrLocked = errors.New("temporarily locked")

// Accounts registers identities and checks email/password logins.
type Accounts struct {
	cfg      settings
	dir      Directory
	hasher   PasswordHasher
	dummy    string
	throttle *Throttle
}

// NewAccounts creates an Accounts service. throttle may be nil.
func NewAccounts(dir Directory, hasher PasswordHasher, throttle *Throttle, opts ...Option) (*Accounts, error) {
	if dir == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("directory is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	return &Accounts{
		cfg:      newSettings(opts),
		dir:      dir,
		hasher:   hasher,
		dummy:    dummyHashFor(hasher),
		throttle: throttle,
	}, nil
}

// RegisterUser hashes password and stores a new identity for email.
func (a *Accounts) RegisterUser(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}

	if _, err := a.dir.FindOne(ctx, Filter{FieldEmail: email}); err == nil {
		return nil, oops.Code("ACCOUNT_EXISTS").With("email", email).Wrapf(ErrAlreadyExists, "user %s already exists", email)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "find identity by email").
			Wrap(err)
	}

	hashed, err := a.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	id, err := a.dir.Add(ctx, email, hashed)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, oops.Code("ACCOUNT_EXISTS").With("email", email).Wrapf(ErrAlreadyExists, "user %s already exists", email)
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "add identity").
			Wrap(err)
	}

	a.cfg.logger.InfoContext(ctx, "identity registered", "identity_id", id.ID)
	return id, nil
}

// Authenticate checks an email/password pair. Unknown emails wrap
// ErrNotFound, wrong passwords wrap ErrValidation, and lockouts wrap
// ErrLocked. Password verification runs in every case so that response
// time does not reveal which emails exist.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	id, lookupErr := a.dir.FindOne(ctx, Filter{FieldEmail: email})
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find identity by email").
			Wrap(lookupErr)
	}

	target := a.dummy
	if id != nil {
		target = id.PasswordHash
	}
	valid := CheckPassword(a.hasher, password, target)

	if id == nil {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(ErrNotFound)
	}

	// Lockout is checked after verification to keep timing uniform.
	if a.throttle != nil {
		if st := a.throttle.Check(email); st.Locked() {
			return nil, oops.Code("AUTH_ACCOUNT_LOCKED").
				With("locked_for", st.LockedFor.String()).
				Wrap(ErrLocked)
		}
	}

	if !valid {
		if a.throttle != nil {
			st := a.throttle.Fail(email)
			a.cfg.logger.DebugContext(ctx, "login failed", "identity_id", id.ID, "failures", st.Failures)
		}
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrapf(ErrValidation, "invalid email or password")
	}

	if a.throttle != nil {
		a.throttle.Succeed(email)
	}

	if a.hasher.NeedsUpgrade(id.PasswordHash) {
		a.upgrade(ctx, id, password)
	}
	return id, nil
}

// upgrade rehashes a password verified under outdated parameters. Login
// succeeds regardless of the outcome.
func (a *Accounts) upgrade(ctx context.Context, id *Identity, password string) {
	newHash, err := a.hasher.Hash(password)
	if err != nil {
		return
	}
	err = a.dir.Update(ctx,
		Filter{FieldID: id.ID, FieldPasswordHash: id.PasswordHash},
		Fields{FieldPasswordHash: newHash},
	)
	if err != nil {
		a.cfg.logger.WarnContext(ctx, "password hash upgrade failed", "identity_id", id.ID, "error", err)
		return
	}
	id.PasswordHash = newHash
}

// ValidLogin reports whether email and password identify a user.
func (a *Accounts) ValidLogin(ctx context.Context, email, password string) bool {
	_, err := a.Authenticate(ctx, email, password)
	return err == nil
}
