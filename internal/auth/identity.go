// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identity is an authenticated principal as held by a Directory.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	// SessionToken is only populated by the database-backed session strategy.
	SessionToken string
	ResetToken   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewIdentity creates an Identity with a fresh ULID.
func NewIdentity(email, passwordHash string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, oops.Code("IDENTITY_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("IDENTITY_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	now := time.Now().UTC()
	return &Identity{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Get returns the value of a directory-managed field.
func (i *Identity) Get(f Field) (string, bool) {
	switch f {
	case FieldID:
		return i.ID, true
	case FieldEmail:
		return i.Email, true
	case FieldPasswordHash:
		return i.PasswordHash, true
	case FieldSessionToken:
		return i.SessionToken, true
	case FieldResetToken:
		return i.ResetToken, true
	default:
		return "", false
	}
}

// Set assigns a directory-managed field. Callers are expected to have
// validated fields with Fields.Validate.
func (i *Identity) Set(f Field, value string) {
	switch f {
	case FieldEmail:
		i.Email = value
	case FieldPasswordHash:
		i.PasswordHash = value
	case FieldSessionToken:
		i.SessionToken = value
	case FieldResetToken:
		i.ResetToken = value
	}
}

// Matches reports whether every filter entry equals the identity's field.
// An empty filter value never matches, so a cleared token cannot be used
// to look anything up.
func (i *Identity) Matches(filter Filter) bool {
	for f, want := range filter {
		if want == "" {
			return false
		}
		got, ok := i.Get(f)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Clone returns a copy that callers may modify freely.
func (i *Identity) Clone() *Identity {
	c := *i
	return &c
}

// Field names a directory-managed attribute of an Identity.
type Field string

// Fields known to every Directory.
const (
	FieldID           Field = "id"
	FieldEmail        Field = "email"
	FieldPasswordHash Field = "hashed_password"
	FieldSessionToken Field = "session_id"
	FieldResetToken   Field = "reset_token"
)

// Filter selects identities whose fields equal all given values.
type Filter map[Field]string

// Validate rejects filters that are empty or name unknown fields.
func (f Filter) Validate() error {
	if len(f) == 0 {
		return oops.Code("DIRECTORY_EMPTY_FILTER").Wrap(ErrInvalidField)
	}
	for field := range f {
		if _, ok := (&Identity{}).Get(field); !ok {
			return oops.Code("DIRECTORY_UNKNOWN_FIELD").With("field", string(field)).Wrap(ErrInvalidField)
		}
	}
	return nil
}

// Fields is a set of field assignments applied by Directory.Update.
// An empty value clears a token field.
type Fields map[Field]string

// Validate rejects writes to the primary key, unknown fields, and attempts
// to clear the email or password hash.
func (f Fields) Validate() error {
	if len(f) == 0 {
		return oops.Code("DIRECTORY_EMPTY_UPDATE").Wrap(ErrInvalidField)
	}
	for field, value := range f {
		switch field {
		case FieldSessionToken, FieldResetToken:
		case FieldEmail, FieldPasswordHash:
			if value == "" {
				return oops.Code("DIRECTORY_FIELD_REQUIRED").With("field", string(field)).Wrap(ErrInvalidField)
			}
		default:
			return oops.Code("DIRECTORY_UNKNOWN_FIELD").With("field", string(field)).Wrap(ErrInvalidField)
		}
	}
	return nil
}

// Directory is the identity store consulted by every strategy.
type Directory interface {
	// Find returns every identity matching filter, possibly none.
	Find(ctx context.Context, filter Filter) ([]*Identity, error)

	// FindOne returns the first identity matching filter, or ErrNotFound.
	FindOne(ctx context.Context, filter Filter) (*Identity, error)

	// Add stores a new identity. Returns ErrAlreadyExists if the email is taken.
	Add(ctx context.Context, email, passwordHash string) (*Identity, error)

	// Update applies fields to the identity matching match as one atomic
	// write. Returns ErrNotFound when nothing matched.
	Update(ctx context.Context, match Filter, fields Fields) error
}

// Lifecycle is implemented by directories that keep a snapshot outside
// the process.
type Lifecycle interface {
	Persist(ctx context.Context) error
	Reload(ctx context.Context) error
}

// UpdateByID is the common form of Update keyed by identity ID.
func UpdateByID(ctx context.Context, dir Directory, id string, fields Fields) error {
	return dir.Update(ctx, Filter{FieldID: id}, fields)
}
