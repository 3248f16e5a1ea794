// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/store"
)

// migrator is the part of *store.Migrator the migrate commands use.
type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// migratorFactory opens a migrator; tests replace it.
var migratorFactory = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL identity schema",
		Long:  `Apply, roll back or inspect the identity directory schema.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err
			}
			cmd.Printf("Forced schema version to %d\n", v)
			return nil
		}),
	})
	return cmd
}

func withMigrator(run func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Directory.Driver != config.DriverPostgres || cfg.Directory.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").
				With("key", "directory.database_url").
				Errorf("migrations need the postgres directory driver and a database URL")
		}
		m, err := migratorFactory(cfg.Directory.DatabaseURL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				cmd.PrintErrf("warning: %v\n", closeErr)
			}
		}()
		return run(cmd, m, args)
	}
}

func printStatus(cmd *cobra.Command, st store.Status) {
	name := st.Name
	if name == "" {
		name = "none"
	}
	dirty := ""
	if st.Dirty {
		dirty = " (dirty)"
	}
	cmd.Printf("Version: %d %s%s\n", st.Version, name, dirty)
	if len(st.Pending) == 0 {
		cmd.Println("Pending: none")
		return
	}
	pending := make([]string, 0, len(st.Pending))
	for _, v := range st.Pending {
		pending = append(pending, fmt.Sprint(v))
	}
	cmd.Printf("Pending: %s\n", strings.Join(pending, ", "))
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "invalid version %q", s)
	}
	return v, nil
}
