// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/memory"
)

// fastHasher keeps tests quick; production uses argon2id.
func fastHasher() auth.PasswordHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost)
}

func addUser(t *testing.T, dir auth.Directory, hasher auth.PasswordHasher, email, password string) *auth.Identity {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	id, err := dir.Add(context.Background(), email, hash)
	require.NoError(t, err)
	return id
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []auth.Outcome
	sessions []string
	resets   []string
}

func (r *recordingObserver) ObserveAuth(_ auth.Kind, outcome auth.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingObserver) ObserveSession(_ auth.Kind, op string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, fmt.Sprintf("%s:%t", op, ok))
}

func (r *recordingObserver) ObserveReset(op string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, fmt.Sprintf("%s:%t", op, ok))
}

func (r *recordingObserver) last() auth.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return ""
	}
	return r.outcomes[len(r.outcomes)-1]
}

// failingDirectory fails every call with err.
type failingDirectory struct {
	err error
}

func (f failingDirectory) Find(context.Context, auth.Filter) ([]*auth.Identity, error) {
	return nil, f.err
}

func (f failingDirectory) FindOne(context.Context, auth.Filter) (*auth.Identity, error) {
	return nil, f.err
}

func (f failingDirectory) Add(context.Context, string, string) (*auth.Identity, error) {
	return nil, f.err
}

func (f failingDirectory) Update(context.Context, auth.Filter, auth.Fields) error {
	return f.err
}

func newMemoryDirectory() *memory.Directory {
	return memory.NewDirectory()
}

func newStore() *memory.SessionStore {
	return memory.NewSessionStore()
}
