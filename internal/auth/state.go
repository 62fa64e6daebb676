// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the authenticated session against the trading API.
package auth

import (
	"errors"
	"sync"
	"time"
)

// =============================================================================
// USER PROFILE
// =============================================================================

// Profile is the user record returned by the login and registration
// endpoints. Field tags follow the backend's wire names.
type Profile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"nome"`
	Active    bool   `json:"ativo"`
	CreatedAt string `json:"data_criacao,omitempty"`
}

// =============================================================================
// SESSION STATE
// =============================================================================

// Snapshot is an immutable copy of the session state at a point in time.
type Snapshot struct {
	Profile      *Profile
	Token        string
	Initializing bool
}

// Authenticated reports whether the snapshot holds a live session.
func (s Snapshot) Authenticated() bool {
	return s.Profile != nil && s.Token != ""
}

// State is the authoritative in-memory session record shared by the
// Gateway, Scheduler, and UI. The profile/token pair is the only mutable
// shared resource in the session core; every mutation is atomic with
// respect to the pair - a half-set session is never observable.
type State struct {
	mu sync.Mutex

	profile      *Profile
	token        string
	initializing bool
	initDone     bool

	// onChange fires after every transition between authenticated and
	// unauthenticated. It runs outside the lock.
	onChange func(Snapshot)
}

// NewState creates session state in the initializing phase.
// Initializing stays true until FinishInitializing is called, which happens
// exactly once during hydration regardless of outcome.
func NewState() *State {
	return &State{initializing: true}
}

// SetChangeCallback registers the function called on authentication
// transitions (login established, session cleared). Must be set before the
// scheduler starts.
func (s *State) SetChangeCallback(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	var p *Profile
	if s.profile != nil {
		copied := *s.profile
		p = &copied
	}
	return Snapshot{Profile: p, Token: s.token, Initializing: s.initializing}
}

// Authenticated reports whether a session is currently established.
func (s *State) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile != nil && s.token != ""
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *State) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ErrPartialSession is returned when a profile/token pair is incomplete.
var ErrPartialSession = errors.New("session requires both profile and credential")

// SetSession installs the profile/token pair atomically.
// An empty token or nil profile is rejected with ErrPartialSession and
// leaves the state untouched: the pair invariant (both present or both
// absent) must hold on every path.
func (s *State) SetSession(profile *Profile, token string) error {
	if profile == nil || token == "" {
		return ErrPartialSession
	}

	s.mu.Lock()
	wasAuthenticated := s.profile != nil && s.token != ""
	copied := *profile
	s.profile = &copied
	s.token = token
	snap := s.snapshotLocked()
	cb := s.onChange
	s.mu.Unlock()

	if !wasAuthenticated && cb != nil {
		cb(snap)
	}
	return nil
}

// Clear removes the profile/token pair atomically. Idempotent: clearing an
// empty state is a no-op and does not re-fire the change callback, which is
// what guarantees a single logout notification even when multiple triggers
// race to clear the same session.
func (s *State) Clear() bool {
	s.mu.Lock()
	wasAuthenticated := s.profile != nil && s.token != ""
	s.profile = nil
	s.token = ""
	snap := s.snapshotLocked()
	cb := s.onChange
	s.mu.Unlock()

	if wasAuthenticated && cb != nil {
		cb(snap)
	}
	return wasAuthenticated
}

// FinishInitializing marks the first hydration pass complete. It takes
// effect exactly once; later calls are no-ops.
func (s *State) FinishInitializing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initDone {
		return
	}
	s.initDone = true
	s.initializing = false
}

// Initializing reports whether the first hydration pass is still running.
func (s *State) Initializing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializing
}

// ExpiresAt decodes the current token's expiration claim.
// Returns ok=false when unauthenticated or the claim is undecodable.
func (s *State) ExpiresAt() (time.Time, bool) {
	return DecodeExpiry(s.Token())
}
