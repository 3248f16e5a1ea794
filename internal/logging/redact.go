// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redaction replaces sensitive values in log output.
const Redaction = "***"

// Separator ends a key=value pair in free-text log messages.
const Separator = ";"

// DefaultRedactKeys are always redacted.
var DefaultRedactKeys = []string{
	"password",
	"new_password",
	"token",
	"session_id",
	"reset_token",
	"authorization",
	"secret",
	"cookie",
}

// FilterDatum replaces the value of every field=value<separator> pair in
// message whose field is listed in fields. Values are matched up to the
// first separator.
func FilterDatum(fields []string, redaction, message, separator string) string {
	return filterPairs(compileFields(fields, separator), redaction, message, separator)
}

type fieldPattern struct {
	field string
	re    *regexp.Regexp
}

func compileFields(fields []string, separator string) []fieldPattern {
	out := make([]fieldPattern, 0, len(fields))
	for _, field := range fields {
		out = append(out, fieldPattern{
			field: field,
			re:    regexp.MustCompile(regexp.QuoteMeta(field) + `=.*?` + regexp.QuoteMeta(separator)),
		})
	}
	return out
}

func filterPairs(patterns []fieldPattern, redaction, message, separator string) string {
	for _, p := range patterns {
		message = p.re.ReplaceAllLiteralString(message, p.field+"="+redaction+separator)
	}
	return message
}

// redactHandler blanks attribute values whose key is sensitive and
// filters key=value pairs embedded in the message.
type redactHandler struct {
	handler slog.Handler
	keys     map[string]struct{}
	patterns []fieldPattern
}

func newRedactHandler(h slog.Handler, extra []string) *redactHandler {
	keys := make(map[string]struct{}, len(DefaultRedactKeys)+len(extra))
	var fields []string
	for _, k := range append(append([]string{}, DefaultRedactKeys...), extra...) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := keys[k]; dup {
			continue
		}
		keys[k] = struct{}{}
		fields = append(fields, k)
	}
	return &redactHandler{handler: h, keys: keys, patterns: compileFields(fields, Separator)}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, filterPairs(h.patterns, Redaction, r.Message, Separator), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &redactHandler{handler: h.handler.WithAttrs(redacted), keys: h.keys, patterns: h.patterns}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{handler: h.handler.WithGroup(name), keys: h.keys, patterns: h.patterns}
}

func (h *redactHandler) redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = h.redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	if _, ok := h.keys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, Redaction)
	}
	return a
}
