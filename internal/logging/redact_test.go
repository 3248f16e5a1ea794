// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterDatum(t *testing.T) {
	tests := []struct {
		name      string
		fields    []string
		message   string
		separator string
		want      string
	}{
		{
			name:      "redacts listed fields",
			fields:    []string{"password", "date_of_birth"},
			message:   "name=egg;email=eggmin@eggsample.com;password=eggcellent;date_of_birth=12/12/1986;",
			separator: ";",
			want:      "name=egg;email=eggmin@eggsample.com;password=xxx;date_of_birth=xxx;",
		},
		{
			name:      "other separator",
			fields:    []string{"password"},
			message:   "name=bob|password=hunter2|",
			separator: "|",
			want:      "name=bob|password=xxx|",
		},
		{
			name:      "value without trailing separator is left alone",
			fields:    []string{"password"},
			message:   "password=hunter2",
			separator: ";",
			want:      "password=hunter2",
		},
		{
			name:      "field name is matched literally",
			fields:    []string{"a.b"},
			message:   "aXb=1;a.b=2;",
			separator: ";",
			want:      "aXb=1;a.b=xxx;",
		},
		{
			name:      "no fields",
			message:   "password=hunter2;",
			separator: ";",
			want:      "password=hunter2;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterDatum(tt.fields, "xxx", tt.message, tt.separator))
		})
	}
}

func TestRedactHandler_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("warden", "dev", "json", &buf, "ssn")

	logger.Info("login",
		"email", "bob@example.com",
		"password", "hunter2",
		"Session_ID", "abc",
		"ssn", "123-45-6789",
		slog.Group("request", slog.String("authorization", "Basic Ym9iOmh1bnRlcjI="), slog.String("path", "/")),
	)

	entry := decode(t, &buf)
	assert.Equal(t, "bob@example.com", entry["email"])
	assert.Equal(t, Redaction, entry["password"])
	assert.Equal(t, Redaction, entry["Session_ID"])
	assert.Equal(t, Redaction, entry["ssn"])

	req, ok := entry["request"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, Redaction, req["authorization"])
		assert.Equal(t, "/", req["path"])
	}
}

func TestRedactHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("warden", "dev", "json", &buf).With("reset_token", "tok-1")

	logger.Info("issued")

	entry := decode(t, &buf)
	assert.Equal(t, Redaction, entry["reset_token"])
}

func TestRedactHandler_Message(t *testing.T) {
	var buf bytes.Buffer
	Setup("warden", "dev", "json", &buf).Info("email=bob@example.com;password=hunter2;")

	entry := decode(t, &buf)
	assert.Equal(t, "email=bob@example.com;password=***;", entry["msg"])
}

func TestRedactHandler_CompilesPatternsOnce(t *testing.T) {
	h := newRedactHandler(slog.NewTextHandler(new(bytes.Buffer), nil), []string{" SSN ", "password", ""})

	fields := make([]string, 0, len(h.patterns))
	for _, p := range h.patterns {
		fields = append(fields, p.field)
	}
	assert.Len(t, fields, len(DefaultRedactKeys)+1)
	assert.Contains(t, fields, "ssn")

	child, ok := h.WithGroup("req").WithAttrs(nil).(*redactHandler)
	if assert.True(t, ok) {
		assert.Same(t, &h.patterns[0], &child.patterns[0])
	}
	assert.Equal(t, "ssn=***;", filterPairs(h.patterns, Redaction, "ssn=1;", Separator))
}
