// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"sync"
	"time"
)

// Login throttling configuration.
const (
	// LockoutDuration is the time a principal is locked out after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that triggers a lockout.
	LockoutThreshold = 7

	maxThrottleDelay = 32 * time.Second
)

// ThrottleState describes how a principal's next login attempt is treated.
type ThrottleState struct {
	Failures int
	// Delay is the suggested wait before another attempt.
	Delay time.Duration
	// LockedFor is non-zero while the principal is locked out.
	LockedFor time.Duration
}

// Locked reports whether the principal is locked out.
func (s ThrottleState) Locked() bool {
	return s.LockedFor > 0
}

// stateFor derives the throttle state: a 2^(n-1) second delay below the
// threshold, capped at 32s, then a lockout.
func stateFor(failures int, lockedUntil, now time.Time) ThrottleState {
	st := ThrottleState{Failures: failures}
	if lockedUntil.After(now) {
		st.LockedFor = lockedUntil.Sub(now)
		return st
	}
	if failures > 0 && failures < LockoutThreshold {
		st.Delay = min(time.Duration(1<<(failures-1))*time.Second, maxThrottleDelay)
	}
	return st
}

type throttleEntry struct {
	failures    int
	lockedUntil time.Time
}

// Throttle counts consecutive login failures per principal in memory.
type Throttle struct {
	mu      sync.Mutex
	entries map[string]*throttleEntry
	now     func() time.Time
}

// NewThrottle creates an empty Throttle.
func NewThrottle() *Throttle {
	return &Throttle{entries: make(map[string]*throttleEntry), now: time.Now}
}

// Check returns the current state for key without changing it.
func (t *Throttle) Check(key string) ThrottleState {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return ThrottleState{}
	}
	return stateFor(e.failures, e.lockedUntil, t.now())
}

// Fail records a failed attempt for key.
func (t *Throttle) Fail(key string) ThrottleState {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	e, ok := t.entries[key]
	if !ok {
		e = &throttleEntry{}
		t.entries[key] = e
	}
	if !e.lockedUntil.IsZero() && !e.lockedUntil.After(now) {
		// Lockout served; start counting again.
		*e = throttleEntry{}
	}
	e.failures++
	if e.failures >= LockoutThreshold && e.lockedUntil.IsZero() {
		e.lockedUntil = now.Add(LockoutDuration)
	}
	return stateFor(e.failures, e.lockedUntil, now)
}

// Succeed forgets key.
func (t *Throttle) Succeed(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}
