// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"testing"
	"time"
)

func testProfile() *Profile {
	return &Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Active: true}
}

func TestStateStartsInitializing(t *testing.T) {
	s := NewState()

	if !s.Initializing() {
		t.Error("new state should be initializing")
	}
	if s.Authenticated() {
		t.Error("new state should not be authenticated")
	}
}

func TestStateFinishInitializingOnce(t *testing.T) {
	s := NewState()

	var snaps []Snapshot
	s.SetChangeCallback(func(snap Snapshot) {
		snaps = append(snaps, snap)
	})

	s.FinishInitializing()
	if s.Initializing() {
		t.Fatal("state still initializing after FinishInitializing")
	}

	// Repeats must not re-open the initializing window.
	s.FinishInitializing()
	if s.Initializing() {
		t.Error("FinishInitializing re-entered the initializing state")
	}
}

func TestStateSetSessionAtomicPair(t *testing.T) {
	s := NewState()

	if err := s.SetSession(nil, "tok"); err == nil {
		t.Error("SetSession accepted a nil profile")
	}
	if err := s.SetSession(testProfile(), ""); err == nil {
		t.Error("SetSession accepted an empty token")
	}
	if s.Authenticated() {
		t.Fatal("rejected updates must not leave partial state")
	}

	if err := s.SetSession(testProfile(), "tok"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	snap := s.Snapshot()
	if !snap.Authenticated() {
		t.Error("snapshot should be authenticated")
	}
	if snap.Profile == nil || snap.Profile.Email != "ana@example.com" {
		t.Errorf("snapshot profile = %+v", snap.Profile)
	}
	if snap.Token != "tok" {
		t.Errorf("snapshot token = %q, want %q", snap.Token, "tok")
	}
}

func TestStateSnapshotIsolation(t *testing.T) {
	s := NewState()
	if err := s.SetSession(testProfile(), "tok"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	snap := s.Snapshot()
	snap.Profile.Email = "mutated@example.com"

	if got := s.Snapshot().Profile.Email; got != "ana@example.com" {
		t.Errorf("mutating a snapshot leaked into live state: %q", got)
	}
}

func TestStateClearIdempotent(t *testing.T) {
	s := NewState()
	if err := s.SetSession(testProfile(), "tok"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	var transitions int
	s.SetChangeCallback(func(snap Snapshot) {
		if !snap.Authenticated() {
			transitions++
		}
	})

	if !s.Clear() {
		t.Error("first Clear should report a transition")
	}
	if s.Clear() {
		t.Error("second Clear should be a no-op")
	}
	if s.Clear() {
		t.Error("third Clear should be a no-op")
	}

	if transitions != 1 {
		t.Errorf("logout callback fired %d times, want 1", transitions)
	}
	if s.Authenticated() || s.Token() != "" {
		t.Error("cleared state retained session data")
	}
}

func TestStateExpiresAt(t *testing.T) {
	s := NewState()

	if _, ok := s.ExpiresAt(); ok {
		t.Error("unauthenticated state reported an expiry")
	}

	exp := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	if err := s.SetSession(testProfile(), makeTokenExpiring(exp)); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	got, ok := s.ExpiresAt()
	if !ok {
		t.Fatal("expected an expiry")
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}

	if err := s.SetSession(testProfile(), "opaque-token"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if _, ok := s.ExpiresAt(); ok {
		t.Error("opaque token reported an expiry")
	}
}
