// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides the PostgreSQL identity directory.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/warden/internal/auth"
)

const identityColumns = `id, email, hashed_password, session_id, reset_token, created_at, updated_at`

// poolIface is the subset of *pgxpool.Pool used by Directory.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Directory implements auth.Directory on the identities table.
type Directory struct {
	pool poolIface
}

// New wraps an existing pool.
func New(pool poolIface) *Directory {
	return &Directory{pool: pool}
}

// Connect opens a pool for databaseURL, retrying the initial ping with
// exponential backoff while the server comes up.
func Connect(ctx context.Context, databaseURL string) (*Directory, error) {
	if databaseURL == "" {
		return nil, oops.Code("DIRECTORY_CONNECT_FAILED").Errorf("database URL is empty")
	}
	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	pool, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			// A malformed URL will not improve with retries.
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, retry.RetryableError(err)
		}
		return pool, nil
	})
	if err != nil {
		return nil, oops.Code("DIRECTORY_CONNECT_FAILED").Wrap(err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (d *Directory) Close() {
	d.pool.Close()
}

// Ping reports whether the database is reachable.
func (d *Directory) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return oops.Code("DIRECTORY_UNAVAILABLE").Wrap(err)
	}
	return nil
}

// Find implements auth.Directory.
func (d *Directory) Find(ctx context.Context, filter auth.Filter) ([]*auth.Identity, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if hasEmptyValue(filter) {
		return nil, nil
	}
	where, args := whereClause(filter, 1)
	rows, err := d.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE `+where+` ORDER BY created_at, id`,
		args...)
	if err != nil {
		return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "find").Wrap(err)
	}
	defer rows.Close()

	var out []*auth.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "scan").Wrap(err)
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "iterate").Wrap(err)
	}
	return out, nil
}

// FindOne implements auth.Directory.
func (d *Directory) FindOne(ctx context.Context, filter auth.Filter) (*auth.Identity, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if hasEmptyValue(filter) {
		return nil, notFound(filter)
	}
	where, args := whereClause(filter, 1)
	row := d.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE `+where+` ORDER BY created_at, id LIMIT 1`,
		args...)
	ident, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(filter)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "find one").Wrap(err)
	}
	return ident, nil
}

// Add implements auth.Directory.
func (d *Directory) Add(ctx context.Context, email, passwordHash string) (*auth.Identity, error) {
	ident, err := auth.NewIdentity(email, passwordHash)
	if err != nil {
		return nil, err
	}
	_, err = d.pool.Exec(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, '', '', $4, $5)`,
		ident.ID, ident.Email, ident.PasswordHash, ident.CreatedAt, ident.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, oops.Code("IDENTITY_EXISTS").With("email", ident.Email).Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_ADD_FAILED").With("id", ident.ID).Wrap(err)
	}
	return ident, nil
}

// Update implements auth.Directory. The match is evaluated inside the
// UPDATE so a concurrent writer cannot consume the same row twice.
func (d *Directory) Update(ctx context.Context, match auth.Filter, fields auth.Fields) error {
	if err := match.Validate(); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if hasEmptyValue(match) {
		return notFound(match)
	}

	set, args := setClause(fields)
	where, whereArgs := whereClause(match, len(args)+1)
	args = append(args, whereArgs...)

	tag, err := d.pool.Exec(ctx,
		`UPDATE identities SET `+set+`, updated_at = now() WHERE id = (
			SELECT id FROM identities WHERE `+where+` ORDER BY created_at, id LIMIT 1 FOR UPDATE
		) AND `+where,
		args...)
	if isUniqueViolation(err) {
		return oops.Code("IDENTITY_EXISTS").With("email", fields[auth.FieldEmail]).Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(match)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(s scanner) (*auth.Identity, error) {
	var ident auth.Identity
	if err := s.Scan(
		&ident.ID,
		&ident.Email,
		&ident.PasswordHash,
		&ident.SessionToken,
		&ident.ResetToken,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &ident, nil
}

// whereClause renders filter as AND-ed equality predicates with
// placeholders numbered from first. Columns are sorted so the statement
// text is stable. Field names are validated before this is called.
func whereClause(filter auth.Filter, first int) (string, []any) {
	cols := sortedFields(filter)
	preds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, f := range cols {
		preds = append(preds, fmt.Sprintf("%s = $%d", f, first+i))
		args = append(args, filter[f])
	}
	return strings.Join(preds, " AND "), args
}

func setClause(fields auth.Fields) (string, []any) {
	cols := make([]auth.Field, 0, len(fields))
	for f := range fields {
		cols = append(cols, f)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	assigns := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, f := range cols {
		assigns = append(assigns, fmt.Sprintf("%s = $%d", f, i+1))
		args = append(args, fields[f])
	}
	return strings.Join(assigns, ", "), args
}

func sortedFields(filter auth.Filter) []auth.Field {
	cols := make([]auth.Field, 0, len(filter))
	for f := range filter {
		cols = append(cols, f)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

func hasEmptyValue(filter auth.Filter) bool {
	for _, v := range filter {
		if v == "" {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func notFound(filter auth.Filter) error {
	fields := make([]string, 0, len(filter))
	for _, f := range sortedFields(filter) {
		fields = append(fields, string(f))
	}
	return oops.Code("IDENTITY_NOT_FOUND").With("fields", fields).Wrap(auth.ErrNotFound)
}

var _ auth.Directory = (*Directory)(nil)
