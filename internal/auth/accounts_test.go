// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/pkg/errutil"
)

func TestAccounts_RegisterUser(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory()
	accounts, err := auth.NewAccounts(dir, fastHasher(), nil)
	require.NoError(t, err)

	id, err := accounts.RegisterUser(ctx, "  bob@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", id.Email)
	assert.NotEqual(t, "pw", id.PasswordHash)

	_, err = accounts.RegisterUser(ctx, "bob@example.com", "other")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)
	errutil.AssertErrorCode(t, err, "ACCOUNT_EXISTS")
	assert.Contains(t, err.Error(), "user bob@example.com already exists")

	_, err = accounts.RegisterUser(ctx, " ", "pw")
	errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_EMAIL")

	_, err = accounts.RegisterUser(ctx, "carol@example.com", "")
	errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
}

func TestAccounts_Authenticate(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory()
	accounts, err := auth.NewAccounts(dir, fastHasher(), nil)
	require.NoError(t, err)
	_, err = accounts.RegisterUser(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		wantCode string
	}{
		{"valid", "bob@example.com", "pw", nil, ""},
		{"wrong password", "bob@example.com", "nope", auth.ErrValidation, "AUTH_INVALID_CREDENTIALS"},
		{"unknown email", "eve@example.com", "pw", auth.ErrNotFound, "ACCOUNT_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := accounts.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				assert.False(t, accounts.ValidLogin(ctx, tt.email, tt.password))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, id.Email)
			assert.True(t, accounts.ValidLogin(ctx, tt.email, tt.password))
		})
	}
}

func TestAccounts_DirectoryFailure(t *testing.T) {
	accounts, err := auth.NewAccounts(failingDirectory{err: errors.New("down")}, fastHasher(), nil)
	require.NoError(t, err)

	_, err = accounts.Authenticate(context.Background(), "bob@example.com", "pw")
	errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")

	_, err = accounts.RegisterUser(context.Background(), "bob@example.com", "pw")
	errutil.AssertErrorCode(t, err, "ACCOUNT_REGISTER_FAILED")
}

func TestAccounts_UpgradesOutdatedHash(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory()
	legacy := addUser(t, dir, auth.NewBcryptHasher(bcrypt.MinCost), "bob@example.com", "pw")

	multi, err := auth.NewMultiHasher(auth.AlgorithmArgon2id, bcrypt.MinCost)
	require.NoError(t, err)
	accounts, err := auth.NewAccounts(dir, multi, nil)
	require.NoError(t, err)

	id, err := accounts.Authenticate(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	stored, err := dir.FindOne(ctx, auth.Filter{auth.FieldID: legacy.ID})
	require.NoError(t, err)
	alg, ok := auth.DetectAlgorithm(stored.PasswordHash)
	require.True(t, ok)
	assert.Equal(t, auth.AlgorithmArgon2id, alg)
	assert.Equal(t, stored.PasswordHash, id.PasswordHash)

	assert.True(t, accounts.ValidLogin(ctx, "bob@example.com", "pw"))
}

func TestAccounts_ThrottleLocksOut(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory()
	accounts, err := auth.NewAccounts(dir, fastHasher(), auth.NewThrottle())
	require.NoError(t, err)
	_, err = accounts.RegisterUser(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	for range auth.LockoutThreshold {
		_, err = accounts.Authenticate(ctx, "bob@example.com", "wrong")
		require.Error(t, err)
	}

	_, err = accounts.Authenticate(ctx, "bob@example.com", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrLocked)
	errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_LOCKED")
}

func TestAccounts_ThrottleResetsOnSuccess(t *testing.T) {
	ctx := context.Background()
	throttle := auth.NewThrottle()
	accounts, err := auth.NewAccounts(newMemoryDirectory(), fastHasher(), throttle)
	require.NoError(t, err)
	_, err = accounts.RegisterUser(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	_, _ = accounts.Authenticate(ctx, "bob@example.com", "wrong")
	assert.Equal(t, 1, throttle.Check("bob@example.com").Failures)

	_, err = accounts.Authenticate(ctx, "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Zero(t, throttle.Check("bob@example.com").Failures)
}
