// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/authhttp"
	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/logging"
	"github.com/holomush/warden/internal/observability"
	"github.com/holomush/warden/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand. deps may be nil.
func NewServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API",
		Long: `Start the HTTP API that authenticates requests with the configured
strategy, together with the metrics and health endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.SetDefault("warden", version, cfg.Log.Format, cfg.Log.Redact...)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := runServe(ctx, cfg, logger, deps); err != nil {
				errutil.LogError(logger, "serve failed", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().Bool("secure-cookie", false, "mark the session cookie Secure")
	return cmd
}

// runServe runs the API until ctx is cancelled or a server fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DirectoryOpener == nil {
		deps.DirectoryOpener = openDirectory
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(addr string, api http.Handler, logger *slog.Logger) APIServer {
			return authhttp.NewServer(addr, api, logger)
		}
	}

	logger.Info("starting warden",
		"auth_type", cfg.Auth.Type,
		"directory", cfg.Directory.Driver,
		"addr", cfg.Server.Addr,
	)

	handle, err := deps.DirectoryOpener(ctx, cfg)
	if err != nil {
		return oops.Code("SERVE_DIRECTORY_FAILED").With("driver", cfg.Directory.Driver).Wrap(err)
	}
	defer handle.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []auth.Option{auth.WithLogger(logger)}
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, handle.Ready)
		opts = append(opts, auth.WithObserver(obsServer.Metrics()))
	}

	svc, err := buildServices(cfg, handle.dir, opts...)
	if err != nil {
		return err
	}
	var revoker authhttp.SessionRevoker
	if cfg.Kind() == auth.KindSession {
		revoker = svc.sessions
		if obsServer != nil {
			observability.RegisterActiveSessions(obsServer.Registry(), svc.sessions.Len)
		}
	}

	api, err := authhttp.NewAPI(authhttp.APIConfig{
		Strategy: svc.strategy,
		Accounts: svc.accounts,
		Resets:   svc.resets,
		Excluded: cfg.Auth.ExcludedPaths,
		Paths:    svc.paths,
		Revoker:  revoker,
		Logger:   logger,
		Secure:   cfg.Server.SecureCookie,
	})
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_OBSERVABILITY_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer := deps.APIServerFactory(cfg.Server.Addr, api.Handler(), logger)
	if err := apiServer.Start(); err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("SERVE_API_FAILED").Wrap(err)
	}
	if deps.OnReady != nil {
		deps.OnReady(apiServer.Addr())
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer, logger)

	if err := handle.Persist(shutdownCtx); err != nil {
		return oops.Code("SERVE_PERSIST_FAILED").Wrap(err)
	}
	logger.Info("shutdown complete")
	return nil
}

func stopObservability(s ObservabilityServer, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when errCh reports a failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
