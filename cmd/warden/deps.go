// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/memory"
	"github.com/holomush/warden/internal/auth/postgres"
	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DirectoryOpener opens the configured identity directory.
	// Default: openDirectory
	DirectoryOpener func(ctx context.Context, cfg *config.Config) (*directoryHandle, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// APIServerFactory creates the API server.
	// Default: authhttp.NewServer
	APIServerFactory func(addr string, api http.Handler, logger *slog.Logger) APIServer

	// OnReady is called once both servers are listening.
	OnReady func(apiAddr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.AuthMetrics
	Registry() *prometheus.Registry
}

// APIServer interface wraps the methods used from authhttp.Server.
type APIServer interface {
	Start() error
	Stop(ctx context.Context) error
	Addr() string
}

// pinger is implemented by directories with a remote backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// directoryHandle is an open identity directory and its optional
// lifecycle hooks.
type directoryHandle struct {
	dir       auth.Directory
	lifecycle auth.Lifecycle
	close     func()
}

// Ready reports whether the directory backend is reachable.
func (h *directoryHandle) Ready(ctx context.Context) error {
	if p, ok := h.dir.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the directory.
func (h *directoryHandle) Close() {
	if h.close != nil {
		h.close()
	}
}

// Persist saves a file-backed directory. Other backends are a no-op.
func (h *directoryHandle) Persist(ctx context.Context) error {
	if h.lifecycle == nil {
		return nil
	}
	return h.lifecycle.Persist(ctx)
}

// openDirectory opens the directory named by cfg. A memory directory is
// reloaded from its snapshot file.
func openDirectory(ctx context.Context, cfg *config.Config) (*directoryHandle, error) {
	switch cfg.Directory.Driver {
	case config.DriverPostgres:
		dir, err := postgres.Connect(ctx, cfg.Directory.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &directoryHandle{dir: dir, close: dir.Close}, nil
	case config.DriverMemory:
		dir := memory.NewDirectory(memory.WithSnapshotFile(cfg.Directory.File))
		if err := dir.Reload(ctx); err != nil {
			return nil, err
		}
		return &directoryHandle{dir: dir, lifecycle: dir}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "directory.driver").Errorf("unknown directory driver %q", cfg.Directory.Driver)
	}
}

// newHasher builds the password hasher named by cfg. Hashes from either
// algorithm verify regardless of which one is preferred.
func newHasher(cfg *config.Config) (*auth.MultiHasher, error) {
	return auth.NewMultiHasher(auth.Algorithm(cfg.Auth.Hasher), cfg.Auth.BcryptCost)
}

// services holds the auth components built from a configuration.
type services struct {
	strategy auth.Strategy
	accounts *auth.Accounts
	resets   *auth.ResetService
	sessions *memory.SessionStore
	paths    *auth.PathSet
}

func buildServices(cfg *config.Config, dir auth.Directory, opts ...auth.Option) (*services, error) {
	hasher, err := newHasher(cfg)
	if err != nil {
		return nil, err
	}
	sessions := memory.NewSessionStore()

	strategy, err := auth.NewStrategy(cfg.Kind(), auth.StrategyDeps{
		Directory:  dir,
		Hasher:     hasher,
		Sessions:   sessions,
		CookieName: cfg.Auth.SessionName,
	}, opts...)
	if err != nil {
		return nil, err
	}
	accounts, err := auth.NewAccounts(dir, hasher, auth.NewThrottle(), opts...)
	if err != nil {
		return nil, err
	}
	resets, err := auth.NewResetService(dir, hasher, opts...)
	if err != nil {
		return nil, err
	}

	svc := &services{strategy: strategy, accounts: accounts, resets: resets, sessions: sessions}
	if cfg.Auth.WildcardPaths {
		if svc.paths, err = auth.CompilePaths(cfg.Auth.ExcludedPaths); err != nil {
			return nil, err
		}
	}
	return svc, nil
}
