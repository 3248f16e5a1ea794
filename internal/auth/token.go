// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// TokenGenerator produces opaque, unguessable tokens.
type TokenGenerator func() (string, error)

// NewToken returns a random (version 4) UUID in canonical form. It is used
// for session tokens and reset tokens alike.
func NewToken() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "uuid.NewRandom").
			Wrap(err)
	}
	return u.String(), nil
}
