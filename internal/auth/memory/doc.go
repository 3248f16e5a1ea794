// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides process-local implementations of auth.SessionStore
// and auth.Directory.
//
// Sessions held by SessionStore are lost when the process exits. Directory
// can optionally snapshot itself to a YAML file through Persist and Reload.
package memory
