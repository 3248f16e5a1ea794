// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"sort"
	"sync"

	"github.com/holomush/warden/internal/auth"
)

// maxTokenAttempts bounds regeneration on the astronomically unlikely
// event of a token collision.
const maxTokenAttempts = 3

// SessionStore maps session tokens to identity IDs. It is safe for
// concurrent use; every operation on a token is serialized by one lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string
	newToken auth.TokenGenerator
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithTokenGenerator replaces auth.NewToken.
func WithTokenGenerator(g auth.TokenGenerator) StoreOption {
	return func(s *SessionStore) {
		if g != nil {
			s.newToken = g
		}
	}
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore(opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]string),
		newToken: auth.NewToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new token bound to identityID. Each call yields a
// distinct token, so one identity may hold many sessions.
func (s *SessionStore) Create(identityID string) (string, bool) {
	if identityID == "" {
		return "", false
	}
	for range maxTokenAttempts {
		token, err := s.newToken()
		if err != nil || token == "" {
			return "", false
		}
		s.mu.Lock()
		if _, taken := s.sessions[token]; !taken {
			s.sessions[token] = identityID
			s.mu.Unlock()
			return token, true
		}
		s.mu.Unlock()
	}
	return "", false
}

// Resolve returns the identity ID bound to token.
func (s *SessionStore) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	return id, ok
}

// Destroy unbinds token. Only the first of several calls for the same
// token returns true.
func (s *SessionStore) Destroy(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return false
	}
	delete(s.sessions, token)
	return true
}

// Sessions returns the tokens bound to identityID in sorted order.
func (s *SessionStore) Sessions(identityID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tokens []string
	for token, id := range s.sessions {
		if id == identityID {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// DestroyAll unbinds every token of identityID and returns how many there were.
func (s *SessionStore) DestroyAll(identityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, id := range s.sessions {
		if id == identityID {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ auth.SessionStore = (*SessionStore)(nil)
