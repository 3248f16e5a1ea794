// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/pkg/errutil"
)

var columns = []string{"id", "email", "hashed_password", "session_id", "reset_token", "created_at", "updated_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Directory) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, New(mock)
}

func TestDirectory_Find(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		filter    auth.Filter
		setupMock func(mock pgxmock.PgxPoolIface)
		wantIDs   []string
		wantCode  string
	}{
		{
			name:   "matches by email",
			filter: auth.Filter{auth.FieldEmail: "a@example.com"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM identities WHERE email = \$1 ORDER BY created_at, id`).
					WithArgs("a@example.com").
					WillReturnRows(pgxmock.NewRows(columns).
						AddRow("01A", "a@example.com", "hash", "", "", created, created))
			},
			wantIDs: []string{"01A"},
		},
		{
			name:   "multiple columns are sorted",
			filter: auth.Filter{auth.FieldResetToken: "tok", auth.FieldID: "01A"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE id = \$1 AND reset_token = \$2`).
					WithArgs("01A", "tok").
					WillReturnRows(pgxmock.NewRows(columns))
			},
		},
		{
			name:      "empty value never matches",
			filter:    auth.Filter{auth.FieldSessionToken: ""},
			setupMock: func(pgxmock.PgxPoolIface) {},
		},
		{
			name:      "unknown field",
			filter:    auth.Filter{"nickname": "x"},
			setupMock: func(pgxmock.PgxPoolIface) {},
			wantCode:  "DIRECTORY_UNKNOWN_FIELD",
		},
		{
			name:   "query error",
			filter: auth.Filter{auth.FieldEmail: "a@example.com"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM identities`).
					WithArgs("a@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "IDENTITY_QUERY_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, dir := newMock(t)
			tt.setupMock(mock)

			got, err := dir.Find(context.Background(), tt.filter)
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, ident := range got {
				ids = append(ids, ident.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestDirectory_FindOne(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("returns the scanned identity", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectQuery(`WHERE session_id = \$1 ORDER BY created_at, id LIMIT 1`).
			WithArgs("sess").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("01A", "a@example.com", "hash", "sess", "", created, created))

		got, err := dir.FindOne(context.Background(), auth.Filter{auth.FieldSessionToken: "sess"})
		require.NoError(t, err)
		assert.Equal(t, "01A", got.ID)
		assert.Equal(t, "sess", got.SessionToken)
		assert.Equal(t, created, got.CreatedAt)
	})

	t.Run("no rows is not found", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectQuery(`WHERE email = \$1`).
			WithArgs("ghost@example.com").
			WillReturnRows(pgxmock.NewRows(columns))

		_, err := dir.FindOne(context.Background(), auth.Filter{auth.FieldEmail: "ghost@example.com"})
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "IDENTITY_NOT_FOUND")
		errutil.AssertErrorContext(t, err, "fields", []string{"email"})
	})

	t.Run("empty value is not found without a query", func(t *testing.T) {
		_, dir := newMock(t)
		_, err := dir.FindOne(context.Background(), auth.Filter{auth.FieldResetToken: ""})
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestDirectory_Add(t *testing.T) {
	t.Run("inserts a new identity", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`INSERT INTO identities`).
			WithArgs(pgxmock.AnyArg(), "new@example.com", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		ident, err := dir.Add(context.Background(), " new@example.com ", "hash")
		require.NoError(t, err)
		assert.NotEmpty(t, ident.ID)
		assert.Equal(t, "new@example.com", ident.Email)
	})

	t.Run("unique violation is already exists", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`INSERT INTO identities`).
			WithArgs(pgxmock.AnyArg(), "dup@example.com", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		_, err := dir.Add(context.Background(), "dup@example.com", "hash")
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorCode(t, err, "IDENTITY_EXISTS")
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`INSERT INTO identities`).
			WithArgs(pgxmock.AnyArg(), "a@example.com", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))

		_, err := dir.Add(context.Background(), "a@example.com", "hash")
		errutil.AssertErrorCode(t, err, "IDENTITY_ADD_FAILED")
	})

	t.Run("empty email is rejected before the database", func(t *testing.T) {
		_, dir := newMock(t)
		_, err := dir.Add(context.Background(), "  ", "hash")
		errutil.AssertErrorCode(t, err, "IDENTITY_INVALID_EMAIL")
	})
}

func TestDirectory_Update(t *testing.T) {
	t.Run("conditional reset consume", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`UPDATE identities SET hashed_password = \$1, reset_token = \$2, updated_at = now\(\)`).
			WithArgs("newhash", "", "01A", "tok").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := dir.Update(context.Background(),
			auth.Filter{auth.FieldID: "01A", auth.FieldResetToken: "tok"},
			auth.Fields{auth.FieldPasswordHash: "newhash", auth.FieldResetToken: ""})
		require.NoError(t, err)
	})

	t.Run("no matching row is not found", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`UPDATE identities`).
			WithArgs("sess", "01A").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := auth.UpdateByID(context.Background(), dir, "01A", auth.Fields{auth.FieldSessionToken: "sess"})
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("email collision", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`UPDATE identities SET email = \$1`).
			WithArgs("taken@example.com", "01A").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := auth.UpdateByID(context.Background(), dir, "01A", auth.Fields{auth.FieldEmail: "taken@example.com"})
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
	})

	t.Run("invalid fields are rejected", func(t *testing.T) {
		_, dir := newMock(t)
		err := auth.UpdateByID(context.Background(), dir, "01A", auth.Fields{auth.FieldID: "other"})
		require.ErrorIs(t, err, auth.ErrInvalidField)
	})

	t.Run("database error", func(t *testing.T) {
		mock, dir := newMock(t)
		mock.ExpectExec(`UPDATE identities SET session_id = \$1`).
			WithArgs("", "01A").
			WillReturnError(errors.New("connection reset"))

		err := auth.UpdateByID(context.Background(), dir, "01A", auth.Fields{auth.FieldSessionToken: ""})
		errutil.AssertErrorCode(t, err, "IDENTITY_UPDATE_FAILED")
	})
}

func TestDirectory_Ping(t *testing.T) {
	mock, dir := newMock(t)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := dir.Ping(context.Background())
	errutil.AssertErrorCode(t, err, "DIRECTORY_UNAVAILABLE")
}

func TestConnect_EmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	errutil.AssertErrorCode(t, err, "DIRECTORY_CONNECT_FAILED")
}
