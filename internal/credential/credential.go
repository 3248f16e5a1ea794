// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package credential decodes HTTP Basic authorization headers.
//
// Decoding runs in three steps, each exported so callers can stop at any
// point: ExtractEnvelope strips the scheme, Decode reverses the base64
// layer, and Split separates the user from the password at the first
// colon. Every failure wraps ErrMalformed except a missing header, which
// is reported as ErrMissingHeader so "no credentials" and "bad
// credentials" stay distinguishable.
package credential

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Scheme is the prefix of a Basic authorization header, including the
// separating space.
const Scheme = "Basic "

// ErrMissingHeader is returned when no header value was presented.
var ErrMissingHeader = errors.New("authorization header missing")

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed credentials")

// ExtractEnvelope returns the part of header after the Basic scheme.
func ExtractEnvelope(header string) (string, error) {
	if header == "" {
		return "", oops.Code("CREDENTIAL_MISSING").Wrap(ErrMissingHeader)
	}
	envelope, ok := strings.CutPrefix(header, Scheme)
	if !ok {
		return "", oops.Code("CREDENTIAL_SCHEME").
			With("expected", strings.TrimSpace(Scheme)).
			Wrapf(ErrMalformed, "unsupported authorization scheme")
	}
	return envelope, nil
}

// Decode reverses the base64 layer of an envelope. The result must be
// valid UTF-8.
func Decode(envelope string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", oops.Code("CREDENTIAL_BASE64").
			Wrapf(errors.Join(ErrMalformed, err), "envelope is not valid base64")
	}
	if !utf8.Valid(raw) {
		return "", oops.Code("CREDENTIAL_UTF8").Wrapf(ErrMalformed, "decoded credentials are not valid UTF-8")
	}
	return string(raw), nil
}

// Split separates decoded credentials at the first colon. Passwords may
// themselves contain colons.
func Split(decoded string) (user, pass string, err error) {
	user, pass, ok := strings.Cut(decoded, ":")
	if !ok {
		return "", "", oops.Code("CREDENTIAL_SEPARATOR").Wrapf(ErrMalformed, "credentials lack a ':' separator")
	}
	return user, pass, nil
}

// Parse runs ExtractEnvelope, Decode and Split in order.
func Parse(header string) (user, pass string, err error) {
	envelope, err := ExtractEnvelope(header)
	if err != nil {
		return "", "", err
	}
	decoded, err := Decode(envelope)
	if err != nil {
		return "", "", err
	}
	return Split(decoded)
}

// Encode builds a Basic header value for user and pass.
func Encode(user, pass string) string {
	return Scheme + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}
