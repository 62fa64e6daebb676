// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// validityServer counts hits on the current-user endpoint and answers with
// the given handler.
func validityServer(hits *atomic.Int64, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/usuario/atual" {
			hits.Add(1)
		}
		handler(w, r)
	}))
}

func serveProfile(w http.ResponseWriter, _ *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"id": 7, "email": "ana@example.com", "nome": "Ana", "ativo": true,
	})
}

func newTestScheduler(t *testing.T, baseURL string) (*Scheduler, *State, *Store) {
	t.Helper()
	state := NewState()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// An hour-long interval keeps the ticker out of these tests; every
	// check is driven explicitly.
	sched := NewScheduler(state, store, NewGateway(baseURL), time.Hour)
	t.Cleanup(sched.Stop)
	return sched, state, store
}

func TestSchedulerStartupRestoresValidSession(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, serveProfile)
	defer server.Close()

	sched, state, store := newTestScheduler(t, server.URL)
	if err := store.Save("tok-stored", testProfile()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	sched.Start()

	waitFor(t, func() bool { return !state.Initializing() },
		"initialization never completed")
	waitFor(t, func() bool { return hits.Load() == 1 },
		"startup check never ran")
	waitFor(t, func() bool { return sched.Phase() == PhaseIdle },
		"scheduler never returned to idle")

	if !state.Authenticated() {
		t.Error("valid stored session should remain live")
	}
	if state.Token() != "tok-stored" {
		t.Errorf("token = %q, want %q", state.Token(), "tok-stored")
	}
}

func TestSchedulerStartupEndsRejectedSession(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	sched, state, store := newTestScheduler(t, server.URL)
	if err := store.Save("tok-stale", testProfile()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	var loggedOut atomic.Int64
	sched.SetLoggedOutCallback(func() { loggedOut.Add(1) })

	sched.Start()

	waitFor(t, func() bool { return sched.Phase() == PhaseLoggedOut },
		"rejected session never reached logged-out")

	if state.Authenticated() {
		t.Error("rejected session should be cleared")
	}
	if got := loggedOut.Load(); got != 1 {
		t.Errorf("logged-out callback fired %d times, want 1", got)
	}
	if _, _, ok := store.Load(); ok {
		t.Error("rejected session should be wiped from the store")
	}
}

func TestSchedulerIndeterminateKeepsSession(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer server.Close()

	sched, state, store := newTestScheduler(t, server.URL)
	if err := store.Save("tok-kept", testProfile()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	sched.Start()

	waitFor(t, func() bool { return hits.Load() >= 1 }, "check never ran")
	waitFor(t, func() bool { return sched.Phase() == PhaseIdle },
		"scheduler never returned to idle")

	if !state.Authenticated() {
		t.Error("an indeterminate check must never end the session")
	}
	if _, _, ok := store.Load(); !ok {
		t.Error("an indeterminate check must not touch the store")
	}
}

func TestSchedulerNoCredentialNoCheck(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, serveProfile)
	defer server.Close()

	sched, state, _ := newTestScheduler(t, server.URL)
	sched.Start()

	waitFor(t, func() bool { return !state.Initializing() },
		"initialization never completed")

	sched.Trigger()
	sched.TriggerWake()
	time.Sleep(50 * time.Millisecond)

	if got := hits.Load(); got != 0 {
		t.Errorf("unauthenticated scheduler made %d checks, want 0", got)
	}
}

func TestSchedulerCoalescesConcurrentTriggers(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	firstEntered := make(chan struct{})
	var enteredOnce atomic.Bool

	server := validityServer(&hits, func(w http.ResponseWriter, r *http.Request) {
		if enteredOnce.CompareAndSwap(false, true) {
			close(firstEntered)
			<-release
		}
		serveProfile(w, r)
	})
	defer server.Close()

	sched, state, _ := newTestScheduler(t, server.URL)
	if err := state.SetSession(testProfile(), "tok-live"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	sched.Trigger()
	<-firstEntered

	// A storm of triggers during one in-flight check coalesces into a
	// single follow-up, never a queue.
	for i := 0; i < 10; i++ {
		sched.Trigger()
	}
	close(release)

	waitFor(t, func() bool { return sched.Phase() == PhaseIdle },
		"scheduler never returned to idle")

	if got := hits.Load(); got != 2 {
		t.Errorf("checks performed = %d, want 2 (in-flight plus one coalesced)", got)
	}
}

func TestSchedulerWakeRateLimited(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, serveProfile)
	defer server.Close()

	sched, state, _ := newTestScheduler(t, server.URL)
	if err := state.SetSession(testProfile(), "tok-live"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		sched.TriggerWake()
	}

	waitFor(t, func() bool { return sched.Phase() == PhaseIdle && hits.Load() >= 1 },
		"wake check never ran")
	time.Sleep(50 * time.Millisecond)

	if got := hits.Load(); got != 1 {
		t.Errorf("checks performed = %d, want 1 (wake burst collapses)", got)
	}
}

func TestSchedulerLogoutIsTerminal(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, serveProfile)
	defer server.Close()

	sched, state, store := newTestScheduler(t, server.URL)
	if err := state.SetSession(testProfile(), "tok-live"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if err := store.Save("tok-live", testProfile()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	sched.Logout()

	if state.Authenticated() {
		t.Error("logout should clear live state")
	}
	if _, _, ok := store.Load(); ok {
		t.Error("logout should clear the store")
	}
	if sched.Phase() != PhaseLoggedOut {
		t.Errorf("phase = %v, want logged-out", sched.Phase())
	}

	// Repeats and late triggers are no-ops.
	sched.Logout()
	sched.Trigger()
	time.Sleep(50 * time.Millisecond)
	if got := hits.Load(); got != 0 {
		t.Errorf("post-logout checks = %d, want 0", got)
	}
}

func TestSchedulerUnauthorizedEndsSessionImmediately(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, serveProfile)
	defer server.Close()

	sched, state, store := newTestScheduler(t, server.URL)
	if err := state.SetSession(testProfile(), "tok-live"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if err := store.Save("tok-live", testProfile()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	var loggedOut atomic.Int64
	sched.SetLoggedOutCallback(func() { loggedOut.Add(1) })

	// A 401 from any protected endpoint ends the session on the spot, with
	// no confirming check.
	sched.HandleUnauthorized()

	if sched.Phase() != PhaseLoggedOut {
		t.Errorf("phase = %v, want logged-out", sched.Phase())
	}
	if state.Authenticated() {
		t.Error("rejected session should be cleared")
	}
	if _, _, ok := store.Load(); ok {
		t.Error("rejected session should be wiped from the store")
	}
	if got := loggedOut.Load(); got != 1 {
		t.Errorf("logged-out callback fired %d times, want 1", got)
	}
	if got := hits.Load(); got != 0 {
		t.Errorf("validity checks performed = %d, want 0", got)
	}

	// Repeats after teardown are no-ops.
	sched.HandleUnauthorized()
	if got := loggedOut.Load(); got != 1 {
		t.Errorf("logged-out callback fired %d times after repeat, want 1", got)
	}
}

func TestSchedulerSetIntervalDrivesTicker(t *testing.T) {
	var hits atomic.Int64
	server := validityServer(&hits, serveProfile)
	defer server.Close()

	sched, state, _ := newTestScheduler(t, server.URL)
	sched.Start()
	waitFor(t, func() bool { return !state.Initializing() },
		"initialization never completed")

	if err := state.SetSession(testProfile(), "tok-live"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	// The hour-long test interval would never fire; shrinking it live must
	// reach the running ticker.
	sched.SetInterval(10 * time.Millisecond)

	waitFor(t, func() bool { return hits.Load() >= 2 },
		"shortened interval never produced periodic checks")
}

func TestSchedulerLoginRevivesAfterLogout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-new",
				"usuario": map[string]any{
					"id": 7, "email": "ana@example.com", "nome": "Ana", "ativo": true,
				},
			})
		default:
			serveProfile(w, r)
		}
	}))
	defer server.Close()

	sched, state, store := newTestScheduler(t, server.URL)
	sched.Logout()

	profile, err := sched.Login(context.Background(), "ana@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if profile.Email != "ana@example.com" {
		t.Errorf("profile email = %q", profile.Email)
	}

	if !state.Authenticated() {
		t.Error("login should establish a live session")
	}
	if sched.Phase() != PhaseIdle {
		t.Errorf("phase after login = %v, want idle", sched.Phase())
	}

	token, _, ok := store.Load()
	if !ok || token != "tok-new" {
		t.Errorf("persisted token = %q, %v; want %q, true", token, ok, "tok-new")
	}
}
