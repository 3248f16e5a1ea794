// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authhttp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Server serves the API on a TCP listener.
type Server struct {
	addr      string
	api       http.Handler
	logger    *slog.Logger
	startTime time.Time

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a server for addr that routes everything except
// /health to api.
func NewServer(addr string, api http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, api: api, logger: logger, startTime: time.Now()}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", s.api)
	return mux
}

// Start begins listening. Serve failures after Start are logged.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return oops.Code("API_SERVER_RUNNING").Errorf("api server already started")
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return oops.Code("API_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "addr", s.Addr(), "error", err)
		}
	}()
	s.logger.Info("api server listening", "addr", s.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.Code("API_SHUTDOWN_FAILED").Wrap(err)
	}
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("failed to close api listener", "error", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if !s.running.Load() {
		status = "stopping"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}
