// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Kind selects a Strategy implementation.
type Kind string

// Strategy kinds, named after the configuration values that select them.
const (
	KindBasic     Kind = "basic_auth"
	KindSession   Kind = "session_auth"
	KindDBSession Kind = "db_session_auth"
)

// Kinds lists every supported strategy kind.
func Kinds() []Kind {
	return []Kind{KindBasic, KindSession, KindDBSession}
}

// Strategy decides whether a request must authenticate and, if so, who it
// is. Resolution never returns errors: every failure reads as "no identity".
type Strategy interface {
	Kind() Kind

	// RequireAuth reports whether path needs authentication given the
	// exact-match exclusion list.
	RequireAuth(path string, excluded []string) bool

	// AuthorizationHeader returns the raw Authorization header, if any.
	AuthorizationHeader(r Request) (string, bool)

	// CurrentUser resolves the identity behind r.
	CurrentUser(ctx context.Context, r Request) (*Identity, bool)
}

// SessionStrategy is a Strategy that issues session cookies.
type SessionStrategy interface {
	Strategy

	// CookieName is the cookie carrying the session token.
	CookieName() string

	// Login starts a session for id and returns the cookie value.
	Login(ctx context.Context, id *Identity) (string, bool)

	// Logout ends the session carried by r.
	Logout(ctx context.Context, r Request) bool
}

// Outcome labels the result of one authentication attempt.
type Outcome string

// Authentication outcomes.
const (
	OutcomeOK              Outcome = "ok"
	OutcomeNoCredentials   Outcome = "no_credentials"
	OutcomeMalformed       Outcome = "malformed"
	OutcomeUnknownIdentity Outcome = "unknown_identity"
	OutcomeBadPassword     Outcome = "bad_password"
	OutcomeNoSession       Outcome = "no_session"
	OutcomeError           Outcome = "error"
)

// Observer receives authentication events, typically to feed metrics.
type Observer interface {
	ObserveAuth(kind Kind, outcome Outcome)
	ObserveSession(kind Kind, op string, ok bool)
	ObserveReset(op string, ok bool)
}

type nopObserver struct{}

func (nopObserver) ObserveAuth(Kind, Outcome)          {}
func (nopObserver) ObserveSession(Kind, string, bool) {}
func (nopObserver) ObserveReset(string, bool)         {}

// settings holds the collaborators shared by strategies and services.
type settings struct {
	logger   *slog.Logger
	observer Observer
	newToken TokenGenerator
}

// Option configures a strategy or service.
type Option func(*settings)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithTokenGenerator replaces NewToken.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *settings) {
		if g != nil {
			s.newToken = g
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:   slog.Default(),
		observer: nopObserver{},
		newToken: NewToken,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// strategyBase provides the behavior common to every Strategy.
type strategyBase struct {
	settings
	kind Kind
}

func (b *strategyBase) Kind() Kind {
	return b.kind
}

func (b *strategyBase) RequireAuth(path string, excluded []string) bool {
	return RequireAuth(path, excluded)
}

func (b *strategyBase) AuthorizationHeader(r Request) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Header("Authorization")
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// reject records a failed resolution and returns the absent identity.
func (b *strategyBase) reject(ctx context.Context, outcome Outcome, err error) (*Identity, bool) {
	b.observer.ObserveAuth(b.kind, outcome)
	attrs := []any{"strategy", string(b.kind), "outcome", string(outcome)}
	if err != nil {
		if oopsErr, ok := oops.AsOops(err); ok {
			if code := oopsErr.Code(); code != nil {
				attrs = append(attrs, "code", code)
			}
		}
		attrs = append(attrs, "error", err)
	}
	b.logger.DebugContext(ctx, "authentication rejected", attrs...)
	return nil, false
}

func (b *strategyBase) accept(ctx context.Context, id *Identity) (*Identity, bool) {
	b.observer.ObserveAuth(b.kind, OutcomeOK)
	b.logger.DebugContext(ctx, "authenticated", "strategy", string(b.kind), "identity_id", id.ID)
	return id, true
}

// sessionCookie reads the named cookie from r.
func sessionCookie(r Request, name string) (string, bool) {
	if r == nil || name == "" {
		return "", false
	}
	v, ok := r.Cookie(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// StrategyDeps carries everything NewStrategy may need.
type StrategyDeps struct {
	Directory  Directory
	Hasher     PasswordHasher
	Sessions   SessionStore
	CookieName string
}

// NewStrategy builds the strategy selected by kind.
func NewStrategy(kind Kind, deps StrategyDeps, opts ...Option) (Strategy, error) {
	switch kind {
	case KindBasic:
		return NewBasicStrategy(deps.Directory, deps.Hasher, opts...)
	case KindSession:
		return NewCookieStrategy(deps.Sessions, deps.Directory, deps.CookieName, opts...)
	case KindDBSession:
		return NewDatabaseStrategy(deps.Directory, deps.Hasher, deps.CookieName, opts...)
	default:
		return nil, oops.Code("AUTH_UNKNOWN_STRATEGY").With("kind", string(kind)).Errorf("unknown auth strategy %q", kind)
	}
}
