// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth decides who is making a request.
//
// # Strategies
//
// A Strategy is chosen once at startup by Kind and answers two questions
// per request: does this path need authentication (RequireAuth), and who
// is the caller (CurrentUser). Three implementations exist:
//   - BasicStrategy - decodes a Basic authorization header and checks the
//     password against the Directory on every request
//   - CookieStrategy - resolves a session cookie through an in-process
//     SessionStore
//   - DatabaseStrategy - resolves a session cookie against a token stored
//     on the identity record, and carries the reset-token workflow
//
// Resolution fails closed. CurrentUser returns (nil, false) for missing,
// malformed or wrong credentials alike; the distinction is only visible
// to the configured Observer and in debug logs.
//
// # Services
//
//   - Accounts - registration and email/password login
//   - ResetService - one-time password reset tokens
//
// Unlike resolution, services return oops-coded errors wrapping the
// package sentinels (ErrNotFound, ErrValidation, ErrAlreadyExists,
// ErrLocked) so callers can pick a response.
//
// # Directories
//
// Identities live in a Directory. Update applies all fields in one atomic
// write and only when the match filter still holds, which is what makes
// reset tokens single-use.
package auth
