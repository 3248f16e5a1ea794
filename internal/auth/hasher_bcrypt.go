// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// BcryptHasher implements PasswordHasher using bcrypt. It exists so that
// directories populated by bcrypt-based deployments keep working.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher creates a BcryptHasher. Out-of-range costs fall back to
// DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("algorithm", string(AlgorithmBcrypt)).Wrap(err)
	}
	return string(out), nil
}

// Verify checks if the password matches the hash.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	if !isBcrypt(hash) {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("not a bcrypt hash")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
}

// NeedsUpgrade returns true for non-bcrypt hashes and for bcrypt hashes
// whose cost differs from the configured one.
func (h *BcryptHasher) NeedsUpgrade(hash string) bool {
	if !isBcrypt(hash) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.Cost
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
