// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authhttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/authhttp"
	"github.com/holomush/warden/pkg/errutil"
)

func TestServer_StartStop(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := authhttp.NewServer("127.0.0.1:0", api, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	errutil.AssertErrorCode(t, srv.Start(), "API_SERVER_RUNNING")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	var health authhttp.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)

	resp, err = client.Get("http://" + srv.Addr() + "/api/v1/anything")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx), "second stop is a no-op")
}

func TestServer_ListenFailure(t *testing.T) {
	srv := authhttp.NewServer("256.0.0.1:0", http.NotFoundHandler(), nil)
	errutil.AssertErrorCode(t, srv.Start(), "API_LISTEN_FAILED")
}
