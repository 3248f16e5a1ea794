// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// RequireAuth reports whether path needs authentication. An empty path or
// an empty exclusion list always requires it. Otherwise path is given a
// trailing slash and tested for exact membership in excluded.
func RequireAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}
	normalized := normalizePath(path)
	for _, p := range excluded {
		if p == normalized {
			return false
		}
	}
	return true
}

func normalizePath(p string) string {
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

// PathSet is a compiled exclusion list. Patterns containing '*' are glob
// patterns where '*' stays within one segment and '**' spans segments;
// everything else matches exactly after normalization.
type PathSet struct {
	exact    map[string]struct{}
	patterns []glob.Glob
	raw      []string
}

// CompilePaths compiles patterns into a PathSet.
func CompilePaths(patterns []string) (*PathSet, error) {
	ps := &PathSet{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ps.raw = append(ps.raw, p)
		if !strings.Contains(p, "*") {
			ps.exact[normalizePath(p)] = struct{}{}
			continue
		}
		g, err := glob.Compile(normalizePath(p), '/')
		if err != nil {
			return nil, oops.Code("AUTH_INVALID_PATH_PATTERN").With("pattern", p).Wrap(err)
		}
		ps.patterns = append(ps.patterns, g)
	}
	return ps, nil
}

// Patterns returns the patterns the set was compiled from.
func (ps *PathSet) Patterns() []string {
	return append([]string(nil), ps.raw...)
}

// Excludes reports whether path is exempt from authentication.
func (ps *PathSet) Excludes(path string) bool {
	if ps == nil {
		return false
	}
	normalized := normalizePath(path)
	if _, ok := ps.exact[normalized]; ok {
		return true
	}
	for _, g := range ps.patterns {
		if g.Match(normalized) {
			return true
		}
	}
	return false
}
