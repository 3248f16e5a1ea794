// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewResetCmd creates the reset subcommand.
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Run the password reset workflow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "issue EMAIL",
		Short: "Issue a reset token for EMAIL and print it",
		Args:  cobra.ExactArgs(1),
		RunE: withServices(true, func(cmd *cobra.Command, svc *services, args []string) error {
			token, err := svc.resets.IssueResetToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		}),
	})

	consume := &cobra.Command{
		Use:   "consume TOKEN",
		Short: "Set a new password with a reset token",
		Long:  `Consume TOKEN. The new password is read from --password or the first line of stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: withServices(true, func(cmd *cobra.Command, svc *services, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if err := svc.resets.ConsumeResetToken(cmd.Context(), args[0], password); err != nil {
				return err
			}
			cmd.Println("Password updated")
			return nil
		}),
	}
	consume.Flags().String("password", "", "new password (default: read from stdin)")
	cmd.AddCommand(consume)

	return cmd
}
