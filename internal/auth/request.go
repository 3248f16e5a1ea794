// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "net/textproto"

// Request is the read-only view of an inbound request that strategies need.
type Request interface {
	// Header returns the first value of the named header.
	Header(name string) (string, bool)
	// Cookie returns the value of the named cookie.
	Cookie(name string) (string, bool)
	// Path returns the request path.
	Path() string
}

// RequestView is a map-backed Request. Header names are matched
// case-insensitively.
type RequestView struct {
	Headers map[string]string
	Cookies map[string]string
	URLPath string
}

// Header implements Request.
func (r RequestView) Header(name string) (string, bool) {
	want := textproto.CanonicalMIMEHeaderKey(name)
	for k, v := range r.Headers {
		if textproto.CanonicalMIMEHeaderKey(k) == want {
			return v, true
		}
	}
	return "", false
}

// Cookie implements Request.
func (r RequestView) Cookie(name string) (string, bool) {
	v, ok := r.Cookies[name]
	return v, ok
}

// Path implements Request.
func (r RequestView) Path() string {
	return r.URLPath
}
