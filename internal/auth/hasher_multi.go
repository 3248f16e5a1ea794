// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// Algorithm names a supported password hashing scheme.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// DetectAlgorithm identifies the scheme that produced hash.
func DetectAlgorithm(hash string) (Algorithm, bool) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return AlgorithmArgon2id, true
	case isBcrypt(hash):
		return AlgorithmBcrypt, true
	default:
		return "", false
	}
}

// MultiHasher hashes with a preferred algorithm and verifies any supported
// one, so stored hashes can be migrated on successful login.
type MultiHasher struct {
	preferred Algorithm
	hashers   map[Algorithm]PasswordHasher
}

// NewMultiHasher creates a MultiHasher that writes preferred hashes.
func NewMultiHasher(preferred Algorithm, bcryptCost int) (*MultiHasher, error) {
	m := &MultiHasher{
		preferred: preferred,
		hashers: map[Algorithm]PasswordHasher{
			AlgorithmArgon2id: NewArgon2idHasher(),
			AlgorithmBcrypt:   NewBcryptHasher(bcryptCost),
		},
	}
	if _, ok := m.hashers[preferred]; !ok {
		return nil, oops.Code("AUTH_UNKNOWN_ALGORITHM").With("algorithm", string(preferred)).Errorf("unsupported hash algorithm: %s", preferred)
	}
	return m, nil
}

// Preferred returns the algorithm used for new hashes.
func (m *MultiHasher) Preferred() Algorithm {
	return m.preferred
}

// Hash hashes with the preferred algorithm.
func (m *MultiHasher) Hash(password string) (string, error) {
	return m.hashers[m.preferred].Hash(password)
}

// Verify dispatches on the hash prefix.
func (m *MultiHasher) Verify(password, hash string) (bool, error) {
	alg, ok := DetectAlgorithm(hash)
	if !ok {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unrecognized hash format")
	}
	return m.hashers[alg].Verify(password, hash)
}

// NeedsUpgrade defers to the preferred hasher.
func (m *MultiHasher) NeedsUpgrade(hash string) bool {
	return m.hashers[m.preferred].NeedsUpgrade(hash)
}
