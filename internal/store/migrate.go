// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL schema for the identity directory.
package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5:// driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaRunner is the part of *migrate.Migrate that Migrator drives.
type schemaRunner interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded identity schema migrations.
type Migrator struct {
	m schemaRunner
}

// Status summarizes the schema state of a database.
type Status struct {
	Version uint
	Name    string
	Dirty   bool
	Pending []uint
}

// NewMigrator opens databaseURL for migration. postgres:// and
// postgresql:// URLs are rewritten to the pgx5:// scheme.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").Wrap(err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, driverURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

func driverURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	return m.run("MIGRATION_UP_FAILED", m.m.Up)
}

// Down drops the whole schema.
func (m *Migrator) Down() error {
	return m.run("MIGRATION_DOWN_FAILED", m.m.Down)
}

// Steps moves n migrations up, or down when n is negative.
func (m *Migrator) Steps(n int) error {
	return m.run("MIGRATION_STEPS_FAILED", func() error { return m.m.Steps(n) })
}

func (m *Migrator) run(code string, op func() error) error {
	if err := op(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code(code).Wrap(err)
	}
	return nil
}

// Version returns the applied version. A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without
// running any SQL.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Status reports the current version and the migrations Up would apply.
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, oops.With("operation", "status").Wrap(err)
	}
	versions, err := Versions()
	if err != nil {
		return Status{}, oops.With("operation", "status").Wrap(err)
	}
	st := Status{Version: version, Dirty: dirty}
	for _, v := range versions {
		if v > version {
			st.Pending = append(st.Pending, v)
		}
	}
	if version > 0 {
		if st.Name, err = MigrationName(version); err != nil {
			return Status{}, err
		}
	}
	return st, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	case srcErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// Versions lists the embedded migration versions in ascending order.
// Files that do not start with a six digit version are skipped.
func Versions() ([]uint, error) {
	names, err := upMigrations()
	if err != nil {
		return nil, err
	}
	versions := make([]uint, 0, len(names))
	for _, name := range names {
		var v uint
		if _, err := fmt.Sscanf(name, "%06d", &v); err != nil {
			slog.Warn("skipping migration with unexpected name", "filename", name, "error", err)
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// MigrationName returns the NNNNNN_name stem for version, or "" if no
// embedded migration has that version.
func MigrationName(version uint) (string, error) {
	names, err := upMigrations()
	if err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("%06d_", version)
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimSuffix(name, ".up.sql"), nil
		}
	}
	return "", nil
}

func upMigrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").Wrap(err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
