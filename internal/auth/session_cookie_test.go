// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
)

const cookieName = "_my_session_id"

func cookieRequest(token string) auth.RequestView {
	return auth.RequestView{Cookies: map[string]string{cookieName: token}}
}

func newCookieStrategy(t *testing.T, opts ...auth.Option) (*auth.CookieStrategy, auth.Directory) {
	t.Helper()
	dir := newMemoryDirectory()
	strategy, err := auth.NewCookieStrategy(newStore(), dir, cookieName, opts...)
	require.NoError(t, err)
	return strategy, dir
}

func TestCookieStrategy_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	strategy, dir := newCookieStrategy(t)
	user := addUser(t, dir, fastHasher(), "bob@example.com", "pw")

	token, ok := strategy.CreateSession(user.ID)
	require.True(t, ok)

	id, ok := strategy.IdentityForSession(token)
	require.True(t, ok)
	assert.Equal(t, user.ID, id)

	got, ok := strategy.CurrentUser(ctx, cookieRequest(token))
	require.True(t, ok)
	assert.Equal(t, user.Email, got.Email)

	assert.True(t, strategy.DestroySession(cookieRequest(token)))
	assert.False(t, strategy.DestroySession(cookieRequest(token)))

	_, ok = strategy.CurrentUser(ctx, cookieRequest(token))
	assert.False(t, ok)
}

func TestCookieStrategy_ResolvesIdentity42(t *testing.T) {
	strategy, _ := newCookieStrategy(t)

	token, ok := strategy.CreateSession("42")
	require.True(t, ok)

	id, ok := strategy.IdentityForSession(token)
	require.True(t, ok)
	assert.Equal(t, "42", id)

	require.True(t, strategy.DestroySession(cookieRequest(token)))
	_, ok = strategy.IdentityForSession(token)
	assert.False(t, ok)
}

func TestCookieStrategy_IndependentSessions(t *testing.T) {
	strategy, _ := newCookieStrategy(t)

	seen := map[string]bool{}
	var tokens []string
	for range 5 {
		token, ok := strategy.CreateSession("alice")
		require.True(t, ok)
		require.False(t, seen[token])
		seen[token] = true
		tokens = append(tokens, token)
	}

	require.True(t, strategy.DestroySession(cookieRequest(tokens[0])))
	for _, token := range tokens[1:] {
		id, ok := strategy.IdentityForSession(token)
		require.True(t, ok)
		assert.Equal(t, "alice", id)
	}
}

func TestCookieStrategy_CreateSessionRejectsEmptyID(t *testing.T) {
	obs := &recordingObserver{}
	strategy, _ := newCookieStrategy(t, auth.WithObserver(obs))

	token, ok := strategy.CreateSession("")
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Equal(t, []string{"create:false"}, obs.sessions)
}

func TestCookieStrategy_DestroyWithoutCookie(t *testing.T) {
	strategy, _ := newCookieStrategy(t)
	token, ok := strategy.CreateSession("alice")
	require.True(t, ok)

	assert.False(t, strategy.DestroySession(nil))
	assert.False(t, strategy.DestroySession(auth.RequestView{}))
	assert.False(t, strategy.DestroySession(cookieRequest("unknown")))

	_, ok = strategy.IdentityForSession(token)
	assert.True(t, ok, "failed destroys must not touch other sessions")
}

func TestCookieStrategy_CurrentUserOutcomes(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	strategy, _ := newCookieStrategy(t, auth.WithObserver(obs))

	_, ok := strategy.CurrentUser(ctx, auth.RequestView{})
	assert.False(t, ok)
	assert.Equal(t, auth.OutcomeNoCredentials, obs.last())

	_, ok = strategy.CurrentUser(ctx, cookieRequest("unknown"))
	assert.False(t, ok)
	assert.Equal(t, auth.OutcomeNoSession, obs.last())

	// A session for an identity the directory no longer holds.
	token, ok := strategy.CreateSession("ghost")
	require.True(t, ok)
	_, ok = strategy.CurrentUser(ctx, cookieRequest(token))
	assert.False(t, ok)
	assert.Equal(t, auth.OutcomeUnknownIdentity, obs.last())
}

func TestCookieStrategy_ReadsConfiguredCookie(t *testing.T) {
	dir := newMemoryDirectory()
	strategy, err := auth.NewCookieStrategy(newStore(), dir, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", strategy.CookieName())

	token, ok := strategy.CreateSession("x")
	require.True(t, ok)

	got, ok := strategy.SessionCookie(auth.RequestView{Cookies: map[string]string{"custom": token}})
	require.True(t, ok)
	assert.Equal(t, token, got)

	_, ok = strategy.SessionCookie(cookieRequest(token))
	assert.False(t, ok)
}

func TestCookieStrategy_LoginLogout(t *testing.T) {
	ctx := context.Background()
	strategy, dir := newCookieStrategy(t)
	user := addUser(t, dir, fastHasher(), "bob@example.com", "pw")

	var session auth.SessionStrategy = strategy
	token, ok := session.Login(ctx, user)
	require.True(t, ok)
	_, ok = session.Login(ctx, nil)
	assert.False(t, ok)

	assert.True(t, session.Logout(ctx, cookieRequest(token)))
	assert.False(t, session.Logout(ctx, cookieRequest(token)))
}

func TestNewCookieStrategy_RequiresDeps(t *testing.T) {
	dir := newMemoryDirectory()
	_, err := auth.NewCookieStrategy(nil, dir, cookieName)
	assert.Error(t, err)
	_, err = auth.NewCookieStrategy(newStore(), nil, cookieName)
	assert.Error(t, err)
	_, err = auth.NewCookieStrategy(newStore(), dir, "")
	assert.Error(t, err)
}
