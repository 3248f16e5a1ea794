// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/logging"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage identities",
	}

	add := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Register a new identity",
		Long:  `Register EMAIL. The password is read from --password or the first line of stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: withServices(true, func(cmd *cobra.Command, svc *services, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			id, err := svc.accounts.RegisterUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			cmd.Printf("Created %s (%s)\n", id.Email, id.ID)
			return nil
		}),
	}
	add.Flags().String("password", "", "password (default: read from stdin)")

	verify := &cobra.Command{
		Use:   "verify EMAIL",
		Short: "Check a password for EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: withServices(false, func(cmd *cobra.Command, svc *services, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if !svc.accounts.ValidLogin(cmd.Context(), args[0], password) {
				return oops.Code("LOGIN_INVALID").With("email", args[0]).Errorf("invalid email or password")
			}
			cmd.Println("valid")
			return nil
		}),
	}
	verify.Flags().String("password", "", "password (default: read from stdin)")

	cmd.AddCommand(add, verify)
	return cmd
}

// withServices opens the configured directory, builds the auth services
// and runs fn. When mutates is set a file-backed directory is persisted
// after fn succeeds.
func withServices(mutates bool, fn func(cmd *cobra.Command, svc *services, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runWithServices(cmd, cfg, mutates, func(svc *services) error {
			return fn(cmd, svc, args)
		})
	}
}

func runWithServices(cmd *cobra.Command, cfg *config.Config, mutates bool, fn func(*services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}
	logger := logging.Setup("warden", version, cfg.Log.Format, cmd.ErrOrStderr(), cfg.Log.Redact...)

	handle, err := openDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer handle.Close()

	svc, err := buildServices(cfg, handle.dir, auth.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := fn(svc); err != nil {
		return err
	}
	if mutates {
		return handle.Persist(ctx)
	}
	return nil
}

// readPassword returns --password, or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password is required")
	}
	return line, nil
}
