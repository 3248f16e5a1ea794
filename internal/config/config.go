// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads warden's settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"slices"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/xdg"
)

// Directory drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Auth      AuthConfig      `koanf:"auth" json:"auth,omitempty"`
	Directory DirectoryConfig `koanf:"directory" json:"directory,omitempty"`
	Server    ServerConfig    `koanf:"server" json:"server,omitempty"`
	Metrics   MetricsConfig   `koanf:"metrics" json:"metrics,omitempty"`
	Log       LogConfig       `koanf:"log" json:"log,omitempty"`
}

// AuthConfig selects and tunes the authentication strategy.
type AuthConfig struct {
	Type          string   `koanf:"type" json:"type,omitempty" jsonschema:"enum=basic_auth,enum=session_auth,enum=db_session_auth,description=Authentication strategy"`
	SessionName   string   `koanf:"session_name" json:"session_name,omitempty" jsonschema:"description=Cookie carrying the session token"`
	ExcludedPaths []string `koanf:"excluded_paths" json:"excluded_paths,omitempty" jsonschema:"description=Paths served without authentication"`
	WildcardPaths bool     `koanf:"wildcard_paths" json:"wildcard_paths,omitempty" jsonschema:"description=Allow * and ** patterns in excluded_paths"`
	Hasher        string   `koanf:"hasher" json:"hasher,omitempty" jsonschema:"enum=argon2id,enum=bcrypt"`
	BcryptCost    int      `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=4,maximum=31"`
}

// DirectoryConfig selects the identity store.
type DirectoryConfig struct {
	Driver      string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=memory,enum=postgres"`
	File        string `koanf:"file" json:"file,omitempty" jsonschema:"description=Snapshot file of the memory directory"`
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr         string `koanf:"addr" json:"addr,omitempty"`
	SecureCookie bool   `koanf:"secure_cookie" json:"secure_cookie,omitempty" jsonschema:"description=Mark the session cookie Secure"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string   `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Redact []string `koanf:"redact" json:"redact,omitempty" jsonschema:"description=Extra attribute keys to redact"`
}

// DefaultExcludedPaths are reachable without credentials.
var DefaultExcludedPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
	"/api/v1/users/",
	"/api/v1/reset_password/",
}

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"auth": map[string]any{
			"type":           string(auth.KindBasic),
			"session_name":   "_my_session_id",
			"excluded_paths": slices.Clone(DefaultExcludedPaths),
			"wildcard_paths": false,
			"hasher":         string(auth.AlgorithmArgon2id),
			"bcrypt_cost":    auth.DefaultBcryptCost,
		},
		"directory": map[string]any{
			"driver":       DriverMemory,
			"file":         xdg.UsersFile(),
			"database_url": "",
		},
		"server": map[string]any{
			"addr":          "127.0.0.1:5000",
			"secure_cookie": false,
		},
		"metrics": map[string]any{
			"addr": "127.0.0.1:9100",
		},
		"log": map[string]any{
			"format": "json",
			"redact": []string{},
		},
	}
}

// Kind returns the configured strategy kind.
func (c *Config) Kind() auth.Kind {
	return auth.Kind(c.Auth.Type)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if !slices.Contains(auth.Kinds(), c.Kind()) {
		return invalid("auth.type", "unknown auth type %q", c.Auth.Type)
	}
	if c.Kind() != auth.KindBasic && strings.TrimSpace(c.Auth.SessionName) == "" {
		return invalid("auth.session_name", "session name is required for %s", c.Auth.Type)
	}
	if c.Auth.WildcardPaths {
		if _, err := auth.CompilePaths(c.Auth.ExcludedPaths); err != nil {
			return invalid("auth.excluded_paths", "invalid pattern: %v", err)
		}
	}
	switch auth.Algorithm(c.Auth.Hasher) {
	case auth.AlgorithmArgon2id:
	case auth.AlgorithmBcrypt:
		if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
			return invalid("auth.bcrypt_cost", "bcrypt cost %d outside %d..%d", c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return invalid("auth.hasher", "unknown hasher %q", c.Auth.Hasher)
	}

	switch c.Directory.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Directory.DatabaseURL == "" {
			return invalid("directory.database_url", "database URL is required for the postgres driver")
		}
	default:
		return invalid("directory.driver", "unknown directory driver %q", c.Directory.Driver)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr", "server address is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "unknown log format %q", c.Log.Format)
	}
	return nil
}
