// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/warden/internal/xdg"
)

// EnvPrefix marks environment variables read as configuration. Nested
// keys are separated by a double underscore: WARDEN_AUTH__TYPE.
const EnvPrefix = "WARDEN_"

// envAliases are unprefixed variables honored for compatibility.
var envAliases = map[string]string{
	"AUTH_TYPE":    "auth.type",
	"SESSION_NAME": "auth.session_name",
}

// listKeys hold comma-separated values when set from the environment.
var listKeys = map[string]bool{
	"auth.excluded_paths": true,
	"log.redact":          true,
}

// FlagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by Load.
var FlagKeys = map[string]string{
	"auth-type":        "auth.type",
	"session-name":     "auth.session_name",
	"hasher":           "auth.hasher",
	"directory-driver": "directory.driver",
	"directory-file":   "directory.file",
	"database-url":     "directory.database_url",
	"addr":             "server.addr",
	"secure-cookie":    "server.secure_cookie",
	"metrics-addr":     "metrics.addr",
	"log-format":       "log.format",
}

// mapProvider feeds an in-memory map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// Load builds a Config. path names a YAML file; when empty the XDG config
// file is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	path, err := resolveFile(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", aliasEnv), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env aliases").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", prefixedEnv), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveFile(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	path = xdg.ConfigFile()
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}

func aliasEnv(name, value string) (string, any) {
	key, ok := envAliases[name]
	if !ok {
		return "", nil
	}
	return key, value
}

// prefixedEnv turns WARDEN_AUTH__SESSION_NAME into auth.session_name.
func prefixedEnv(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "" {
		return "", nil
	}
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
