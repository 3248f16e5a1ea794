// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
)

// NewSessionCmd creates the session subcommand. Sessions created here only
// outlive the command with the db_session_auth strategy; session_auth keeps
// them in process memory.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Log in, inspect and log out sessions of the configured strategy",
	}

	login := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Authenticate EMAIL and print a session token",
		Args:  cobra.ExactArgs(1),
		RunE: withServices(true, func(cmd *cobra.Command, svc *services, args []string) error {
			ss, err := sessionStrategy(svc.strategy)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			id, err := svc.accounts.Authenticate(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			token, ok := ss.Login(cmd.Context(), id)
			if !ok {
				return oops.Code("SESSION_CREATE_FAILED").With("email", args[0]).Errorf("could not create a session")
			}
			if ss.Kind() == auth.KindSession {
				cmd.PrintErrln("note: session_auth sessions end with this process")
			}
			cmd.Println(token)
			return nil
		}),
	}
	login.Flags().String("password", "", "password (default: read from stdin)")

	whoami := &cobra.Command{
		Use:   "whoami TOKEN",
		Short: "Print the identity a session token resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: withServices(false, func(cmd *cobra.Command, svc *services, args []string) error {
			ss, err := sessionStrategy(svc.strategy)
			if err != nil {
				return err
			}
			id, ok := ss.CurrentUser(cmd.Context(), cookieRequest(ss, args[0]))
			if !ok {
				return oops.Code("SESSION_NOT_FOUND").Wrapf(auth.ErrNotFound, "session does not resolve to an identity")
			}
			cmd.Printf("%s (%s)\n", id.Email, id.ID)
			return nil
		}),
	}

	logout := &cobra.Command{
		Use:   "logout TOKEN",
		Short: "End the session carried by TOKEN",
		Args:  cobra.ExactArgs(1),
		RunE: withServices(true, func(cmd *cobra.Command, svc *services, args []string) error {
			ss, err := sessionStrategy(svc.strategy)
			if err != nil {
				return err
			}
			if !ss.Logout(cmd.Context(), cookieRequest(ss, args[0])) {
				return oops.Code("SESSION_NOT_FOUND").Wrapf(auth.ErrNotFound, "no session to end")
			}
			cmd.Println("Logged out")
			return nil
		}),
	}

	cmd.AddCommand(login, whoami, logout)
	return cmd
}

func sessionStrategy(s auth.Strategy) (auth.SessionStrategy, error) {
	ss, ok := s.(auth.SessionStrategy)
	if !ok {
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "auth.type").
			Errorf("%s has no sessions", s.Kind())
	}
	return ss, nil
}

// cookieRequest builds a request carrying token in the strategy's cookie.
func cookieRequest(ss auth.SessionStrategy, token string) auth.Request {
	return auth.RequestView{Cookies: map[string]string{ss.CookieName(): token}}
}
