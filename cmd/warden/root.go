// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/config"
)

// NewRootCmd creates the root command for the warden CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warden",
		Short: "warden - pluggable authentication and session service",
		Long: `warden authenticates API requests with HTTP Basic credentials,
server-side session cookies or database-backed sessions, and runs the
password reset workflow.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (default: XDG_CONFIG_HOME/warden/config.yaml)")
	flags.String("auth-type", "", "authentication strategy (basic_auth, session_auth, db_session_auth)")
	flags.String("session-name", "", "session cookie name")
	flags.String("hasher", "", "password hash algorithm for new hashes (argon2id or bcrypt)")
	flags.String("directory-driver", "", "identity directory (memory or postgres)")
	flags.String("directory-file", "", "snapshot file for the memory directory")
	flags.String("database-url", "", "PostgreSQL URL for the postgres directory")
	flags.String("addr", "", "API listen address")
	flags.String("metrics-addr", "", "metrics/health HTTP address")
	flags.String("log-format", "", "log format (json or text)")

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewSessionCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig reads the configuration for cmd, honoring --config and the
// flags in config.FlagKeys.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag is registered on the root
	}
	return config.Load(path, cmd.Flags())
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("warden %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
