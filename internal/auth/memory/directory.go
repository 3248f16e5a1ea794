// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/warden/internal/auth"
)

// record is the snapshot form of an identity.
type record struct {
	ID           string    `yaml:"id"`
	Email        string    `yaml:"email"`
	PasswordHash string    `yaml:"hashed_password"`
	SessionToken string    `yaml:"session_id,omitempty"`
	ResetToken   string    `yaml:"reset_token,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

func toRecord(id *auth.Identity) record {
	return record{
		ID:           id.ID,
		Email:        id.Email,
		PasswordHash: id.PasswordHash,
		SessionToken: id.SessionToken,
		ResetToken:   id.ResetToken,
		CreatedAt:    id.CreatedAt,
		UpdatedAt:    id.UpdatedAt,
	}
}

func (r record) identity() *auth.Identity {
	return &auth.Identity{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		SessionToken: r.SessionToken,
		ResetToken:   r.ResetToken,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Directory is an auth.Directory held in memory. Identities are returned
// as copies; mutation goes through Update.
type Directory struct {
	mu    sync.RWMutex
	byID  map[string]*auth.Identity
	order []string
	path  string
	now   func() time.Time
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithSnapshotFile makes Persist and Reload use path.
func WithSnapshotFile(path string) DirectoryOption {
	return func(d *Directory) {
		d.path = path
	}
}

// NewDirectory creates an empty Directory.
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		byID: make(map[string]*auth.Identity),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Find implements auth.Directory. Results keep insertion order.
func (d *Directory) Find(_ context.Context, filter auth.Filter) ([]*auth.Identity, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*auth.Identity
	for _, id := range d.order {
		if ident := d.byID[id]; ident.Matches(filter) {
			out = append(out, ident.Clone())
		}
	}
	return out, nil
}

// FindOne implements auth.Directory.
func (d *Directory) FindOne(ctx context.Context, filter auth.Filter) (*auth.Identity, error) {
	found, err := d.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, notFound(filter)
	}
	return found[0], nil
}

// Add implements auth.Directory.
func (d *Directory) Add(_ context.Context, email, passwordHash string) (*auth.Identity, error) {
	ident, err := auth.NewIdentity(email, passwordHash)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.emailTaken(ident.Email, "") {
		return nil, oops.Code("IDENTITY_EXISTS").With("email", ident.Email).Wrap(auth.ErrAlreadyExists)
	}
	d.insert(ident)
	return ident.Clone(), nil
}

// Update implements auth.Directory. The match and the write happen under
// one lock.
func (d *Directory) Update(_ context.Context, match auth.Filter, fields auth.Fields) error {
	if err := match.Validate(); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.order {
		ident := d.byID[id]
		if !ident.Matches(match) {
			continue
		}
		if email, ok := fields[auth.FieldEmail]; ok && d.emailTaken(email, ident.ID) {
			return oops.Code("IDENTITY_EXISTS").With("email", email).Wrap(auth.ErrAlreadyExists)
		}
		for f, v := range fields {
			ident.Set(f, v)
		}
		ident.UpdatedAt = d.now()
		return nil
	}
	return notFound(match)
}

// Len returns the number of identities.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Persist writes every identity to the snapshot file. Without a snapshot
// file it does nothing.
func (d *Directory) Persist(_ context.Context) error {
	if d.path == "" {
		return nil
	}
	d.mu.RLock()
	records := make([]record, 0, len(d.order))
	for _, id := range d.order {
		records = append(records, toRecord(d.byID[id]))
	}
	d.mu.RUnlock()

	data, err := yaml.Marshal(records)
	if err != nil {
		return oops.Code("DIRECTORY_PERSIST_FAILED").With("operation", "marshal").Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o700); err != nil {
		return oops.Code("DIRECTORY_PERSIST_FAILED").With("path", d.path).Wrap(err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return oops.Code("DIRECTORY_PERSIST_FAILED").With("path", tmp).Wrap(err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return oops.Code("DIRECTORY_PERSIST_FAILED").With("path", d.path).Wrap(err)
	}
	return nil
}

// Reload replaces the contents with the snapshot file. A missing file
// leaves the directory empty.
func (d *Directory) Reload(_ context.Context) error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		d.reset(nil)
		return nil
	}
	if err != nil {
		return oops.Code("DIRECTORY_RELOAD_FAILED").With("path", d.path).Wrap(err)
	}
	var records []record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return oops.Code("DIRECTORY_RELOAD_FAILED").With("path", d.path).With("operation", "unmarshal").Wrap(err)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	d.reset(records)
	return nil
}

func (d *Directory) reset(records []record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID = make(map[string]*auth.Identity, len(records))
	d.order = d.order[:0]
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		d.insert(r.identity())
	}
}

func (d *Directory) insert(ident *auth.Identity) {
	if _, exists := d.byID[ident.ID]; !exists {
		d.order = append(d.order, ident.ID)
	}
	d.byID[ident.ID] = ident
}

// emailTaken must be called with mu held.
func (d *Directory) emailTaken(email, exceptID string) bool {
	for id, ident := range d.byID {
		if id != exceptID && ident.Email == email {
			return true
		}
	}
	return false
}

func notFound(filter auth.Filter) error {
	// Field names only; token values stay out of error context.
	fields := make([]string, 0, len(filter))
	for f := range filter {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	return oops.Code("IDENTITY_NOT_FOUND").With("fields", fields).Wrap(auth.ErrNotFound)
}

var (
	_ auth.Directory = (*Directory)(nil)
	_ auth.Lifecycle = (*Directory)(nil)
)
