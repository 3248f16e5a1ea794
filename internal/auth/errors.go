// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested identity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when presented proof (a password or a reset
// token) does not authorize the requested action.
var ErrValidation = errors.New("validation failed")

// ErrAlreadyExists is returned when registering an email that is taken.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidField is returned when an update names a field the directory
// does not manage or supplies an illegal value for it.
var ErrInvalidField = errors.New("invalid field")
