// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Scheduling constants.
const (
	// DefaultCheckInterval is how often the credential is re-verified.
	DefaultCheckInterval = 5 * time.Minute

	// wakeMinInterval is the minimum spacing between wake-triggered checks.
	// RELIABILITY: A burst of wake events must not turn into a burst of
	// network calls.
	wakeMinInterval = 30 * time.Second

	// checkTimeout bounds a single validity check.
	checkTimeout = 15 * time.Second
)

// CheckPhase is the scheduler's position in its lifecycle.
type CheckPhase int

const (
	// PhaseIdle means no check is running.
	PhaseIdle CheckPhase = iota

	// PhaseChecking means a check is in flight. Triggers arriving now are
	// coalesced into at most one follow-up check.
	PhaseChecking

	// PhaseLoggedOut means the session ended. The scheduler stays dormant
	// until a new login.
	PhaseLoggedOut
)

// String returns a human-readable name for the phase.
func (p CheckPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChecking:
		return "checking"
	case PhaseLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Scheduler owns the session lifecycle: it hydrates persisted credentials at
// startup, re-verifies them periodically and on wake, and tears the session
// down when the server definitively rejects the credential.
//
// Concurrency contract: any number of triggers may fire at once, but at most
// one check is ever in flight. Triggers that land during a check coalesce
// into a single follow-up rather than queueing.
type Scheduler struct {
	state   *State
	store   *Store
	gateway *Gateway

	interval    time.Duration
	wakeLimiter *rate.Limiter

	mu      sync.Mutex
	phase   CheckPhase
	rerun   bool
	started bool

	startupOnce sync.Once
	stopOnce    sync.Once
	stop        chan struct{}
	done        chan struct{}
	reconfig    chan struct{}

	// onLoggedOut fires once per forced logout, after state and store are
	// cleared. Used to route the UI back to the login screen.
	onLoggedOut func()
}

// NewScheduler wires a scheduler over the given session components.
// A zero interval selects DefaultCheckInterval.
func NewScheduler(state *State, store *Store, gateway *Gateway, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Scheduler{
		state:       state,
		store:       store,
		gateway:     gateway,
		interval:    interval,
		wakeLimiter: rate.NewLimiter(rate.Every(wakeMinInterval), 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		reconfig:    make(chan struct{}, 1),
	}
}

// SetInterval changes the spacing between periodic checks. A zero or
// negative value selects DefaultCheckInterval. Safe to call while the
// scheduler runs; the ticker picks up the new interval immediately.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultCheckInterval
	}
	s.mu.Lock()
	changed := d != s.interval
	s.interval = d
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.reconfig <- struct{}{}:
	default:
	}
}

// SetLoggedOutCallback registers the forced-logout hook. Must be called
// before Start.
func (s *Scheduler) SetLoggedOutCallback(fn func()) {
	s.onLoggedOut = fn
}

// Phase returns the scheduler's current phase.
func (s *Scheduler) Phase() CheckPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start hydrates the persisted session, runs the one-time startup check, and
// launches the periodic ticker. Safe to call once; Stop releases everything.
func (s *Scheduler) Start() {
	s.startupOnce.Do(func() {
		s.hydrate()

		s.mu.Lock()
		s.started = true
		s.mu.Unlock()

		go s.run()

		// Startup verification happens exactly once, after hydration, so a
		// stale stored credential is caught without waiting a full interval.
		s.Trigger()
	})
}

// Stop tears the scheduler down and releases the ticker. Idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()

		close(s.stop)
		if started {
			<-s.done
		}
	})
}

// hydrate restores the persisted credential/profile pair into live state.
// The restored session is optimistic: the startup check confirms or ends it.
// Initialization completes exactly once regardless of what was found.
func (s *Scheduler) hydrate() {
	defer s.state.FinishInitializing()

	token, profile, ok := s.store.Load()
	if !ok {
		return
	}
	if err := s.state.SetSession(profile, token); err != nil {
		// Stored pair failed live validation; drop it rather than carrying
		// state the rest of the app would trip over.
		_ = s.store.Clear()
		return
	}
	log.Printf("Session restored for %s (token %s)", profile.Email, TokenFingerprint(token))
}

// run is the ticker loop. It exits when Stop is called.
func (s *Scheduler) run() {
	defer close(s.done)

	s.mu.Lock()
	interval := s.interval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.reconfig:
			s.mu.Lock()
			interval = s.interval
			s.mu.Unlock()
			ticker.Reset(interval)
		case <-ticker.C:
			s.Trigger()
		}
	}
}

// =============================================================================
// TRIGGERS
// =============================================================================

// Trigger requests a validity check. Without a credential it is a no-op;
// during an in-flight check it coalesces; after logout it is ignored.
func (s *Scheduler) Trigger() {
	s.mu.Lock()

	if s.phase == PhaseLoggedOut || !s.state.Authenticated() {
		s.mu.Unlock()
		return
	}
	if s.phase == PhaseChecking {
		s.rerun = true
		s.mu.Unlock()
		return
	}

	s.phase = PhaseChecking
	s.rerun = false
	s.mu.Unlock()

	go s.checkLoop()
}

// TriggerWake requests a check in response to the user returning after an
// idle gap. Rate limited so rapid wake events collapse into one check.
func (s *Scheduler) TriggerWake() {
	if !s.wakeLimiter.Allow() {
		return
	}
	s.Trigger()
}

// checkLoop runs checks until no coalesced trigger remains. Only this
// goroutine mutates phase away from PhaseChecking.
func (s *Scheduler) checkLoop() {
	for {
		loggedOut := s.checkOnce()

		s.mu.Lock()
		// A manual Logout during the check wins; do not revive the phase.
		if loggedOut || s.phase == PhaseLoggedOut {
			s.phase = PhaseLoggedOut
			s.rerun = false
			s.mu.Unlock()
			return
		}
		if s.rerun && s.state.Authenticated() {
			s.rerun = false
			s.mu.Unlock()
			continue
		}
		s.phase = PhaseIdle
		s.mu.Unlock()
		return
	}
}

// checkOnce performs one validity check. Returns true when the session was
// torn down.
//
// RELIABILITY: Only a definitive rejection ends the session. An
// indeterminate outcome (network down, server error, unreadable body)
// leaves the credential untouched; a later check settles it.
func (s *Scheduler) checkOnce() bool {
	token := s.state.Token()
	if token == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	result, _ := s.gateway.CheckValidity(ctx, token)
	switch result {
	case CheckValid:
		return false
	case CheckInvalid:
		log.Printf("Credential rejected by server (token %s), ending session", TokenFingerprint(token))
		s.forceLogout()
		return true
	default:
		log.Printf("Validity check indeterminate, keeping session")
		return false
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// Login authenticates against the server and, on success, persists and
// activates the session. A previously logged-out scheduler becomes live
// again.
func (s *Scheduler) Login(ctx context.Context, email, password string) (*Profile, error) {
	token, profile, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	// Persist first: if the write fails the caller still gets a live
	// session, it just will not survive a restart.
	if err := s.store.Save(token, profile); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
	if err := s.state.SetSession(profile, token); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.phase == PhaseLoggedOut {
		s.phase = PhaseIdle
	}
	s.mu.Unlock()

	log.Printf("Logged in as %s (token %s)", profile.Email, TokenFingerprint(token))
	return profile, nil
}

// Register creates an account and immediately logs into it.
func (s *Scheduler) Register(ctx context.Context, name, email, password string) (*Profile, error) {
	if _, err := s.gateway.Register(ctx, name, email, password); err != nil {
		return nil, err
	}
	return s.Login(ctx, email, password)
}

// Logout ends the session locally. The server holds no session state, so no
// network call is made; clearing twice is harmless.
func (s *Scheduler) Logout() {
	s.mu.Lock()
	s.phase = PhaseLoggedOut
	s.rerun = false
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		log.Printf("Failed to clear session store: %v", err)
	}
	s.state.Clear()
}

// HandleUnauthorized is the application-wide 401 path. A protected endpoint
// rejecting the credential is as definitive as a failed validity check, so
// the session ends immediately rather than waiting on a confirming re-check
// that might never complete.
func (s *Scheduler) HandleUnauthorized() {
	s.mu.Lock()
	if s.phase == PhaseLoggedOut || !s.state.Authenticated() {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseLoggedOut
	s.rerun = false
	s.mu.Unlock()

	log.Printf("Protected endpoint rejected the credential (token %s), ending session",
		TokenFingerprint(s.state.Token()))
	s.forceLogout()
}

// forceLogout is the server-rejection path: tear down, then notify.
func (s *Scheduler) forceLogout() {
	if err := s.store.Clear(); err != nil {
		log.Printf("Failed to clear session store: %v", err)
	}
	cleared := s.state.Clear()
	if cleared && s.onLoggedOut != nil {
		s.onLoggedOut()
	}
}
