// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/pkg/errutil"
)

func testConfig(t *testing.T, kind string) *config.Config {
	t.Helper()
	users := isolate(t)
	t.Setenv("WARDEN_AUTH__TYPE", kind)
	t.Setenv("WARDEN_DIRECTORY__FILE", users)
	t.Setenv("WARDEN_SERVER__ADDR", "127.0.0.1:0")
	t.Setenv("WARDEN_METRICS__ADDR", "127.0.0.1:0")
	t.Setenv("WARDEN_AUTH__HASHER", "bcrypt")
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	return cfg
}

func TestRunServe_SessionRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, "session_auth")

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- runServe(ctx, cfg, logger, &ServeDeps{OnReady: func(addr string) { ready <- addr }})
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("runServe exited early: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	base := "http://" + addr + "/api/v1"

	resp, err := client.PostForm(base+"/users", url.Values{"email": {"e@example.com"}, "password": {"pw"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.PostForm(base+"/auth_session/login", url.Values{"email": {"e@example.com"}, "password": {"pw"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cfg.Auth.SessionName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	req, err := http.NewRequest(http.MethodGet, base+"/users/me", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err = client.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "e@example.com"))

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runServe did not stop")
	}
	assert.FileExists(t, cfg.Directory.File, "memory directory is persisted on shutdown")
}

func TestRunServe_DirectoryFailure(t *testing.T) {
	cfg := testConfig(t, "basic_auth")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := runServe(context.Background(), cfg, logger, &ServeDeps{
		DirectoryOpener: func(context.Context, *config.Config) (*directoryHandle, error) {
			return nil, errors.New("no database")
		},
	})
	errutil.AssertErrorCode(t, err, "SERVE_DIRECTORY_FAILED")
}

func TestMonitorServerErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	errCh <- errors.New("listener died")
	monitorServerErrors(ctx, cancel, errCh, "test")

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be cancelled after a server error")
	}
}
