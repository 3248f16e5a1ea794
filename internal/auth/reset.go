// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// ResetService issues and consumes one-time password reset tokens.
//
// A reset token lives on the identity record. Consuming it replaces the
// password hash and clears the token in a single conditional directory
// write, so a token can authorize at most one password change even when
// two consumers race.
type ResetService struct {
	cfg    settings
	dir    Directory
	hasher PasswordHasher
}

// NewResetService creates a ResetService.
func NewResetService(dir Directory, hasher PasswordHasher, opts ...Option) (*ResetService, error) {
	if dir == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("directory is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	return &ResetService{cfg: newSettings(opts), dir: dir, hasher: hasher}, nil
}

// IssueResetToken stores a fresh reset token on the identity with email and
// returns it. An unknown email fails with an error wrapping ErrNotFound.
// Any previously issued token for that identity stops working.
func (s *ResetService) IssueResetToken(ctx context.Context, email string) (string, error) {
	token, err := s.issue(ctx, email)
	s.cfg.observer.ObserveReset("issue", err == nil)
	return token, err
}

func (s *ResetService) issue(ctx context.Context, email string) (string, error) {
	id, err := s.dir.FindOne(ctx, Filter{FieldEmail: email})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidField) {
			return "", oops.Code("RESET_UNKNOWN_ACCOUNT").With("email", email).Wrap(ErrNotFound)
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find identity by email").
			Wrap(err)
	}

	token, err := s.cfg.newToken()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := UpdateByID(ctx, s.dir, id.ID, Fields{FieldResetToken: token}); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			With("identity_id", id.ID).
			Wrap(err)
	}

	s.cfg.logger.InfoContext(ctx, "reset token issued", "identity_id", id.ID)
	return token, nil
}

// ValidateResetToken returns the identity holding token. An empty or
// unknown token fails with an error wrapping ErrValidation.
func (s *ResetService) ValidateResetToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrValidation, "reset token cannot be empty")
	}
	id, err := s.dir.FindOne(ctx, Filter{FieldResetToken: token})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrValidation, "reset token not recognized")
		}
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "find identity by reset token").
			Wrap(err)
	}
	return id, nil
}

// ConsumeResetToken sets a new password for the identity holding token and
// clears the token in the same write.
func (s *ResetService) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	err := s.consume(ctx, token, newPassword)
	s.cfg.observer.ObserveReset("consume", err == nil)
	return err
}

func (s *ResetService) consume(ctx context.Context, token, newPassword string) error {
	id, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}

	if newPassword == "" {
		return oops.Code("RESET_PASSWORD_EMPTY").Wrap(ErrEmptyPassword)
	}
	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	err = s.dir.Update(ctx,
		Filter{FieldID: id.ID, FieldResetToken: token},
		Fields{FieldPasswordHash: hashed, FieldResetToken: ""},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Another consumer got there first.
			return oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrValidation, "reset token already used")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "store new password").
			With("identity_id", id.ID).
			Wrap(err)
	}

	s.cfg.logger.InfoContext(ctx, "password reset", "identity_id", id.ID)
	return nil
}
