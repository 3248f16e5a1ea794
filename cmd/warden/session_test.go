// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/pkg/errutil"
)

func TestSessionCommands_DatabaseStrategy(t *testing.T) {
	users := isolate(t)
	base := []string{"--directory-file", users, "--hasher", "bcrypt", "--auth-type", "db_session_auth"}

	_, err := run(t, "", append([]string{"user", "add", "erin@example.com", "--password", "pw"}, base...)...)
	require.NoError(t, err)

	_, err = run(t, "", append([]string{"session", "login", "erin@example.com", "--password", "wrong"}, base...)...)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")

	out, err := run(t, "pw\n", append([]string{"session", "login", "erin@example.com"}, base...)...)
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	out, err = run(t, "", append([]string{"session", "whoami", token}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "erin@example.com")

	out, err = run(t, "", append([]string{"session", "logout", token}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, "", append([]string{"session", "whoami", token}, base...)...)
	errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
}

func TestSessionCommands_BasicHasNoSessions(t *testing.T) {
	users := isolate(t)
	_, err := run(t, "", "session", "whoami", "tok", "--directory-file", users, "--auth-type", "basic_auth")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
