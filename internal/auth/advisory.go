// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"fmt"
	"sync"
	"time"
)

// DefaultWarnThresholdDays is how far ahead of expiry the advisory starts.
const DefaultWarnThresholdDays = 7

// AdvisoryTier classifies how urgently the credential's expiry should be
// surfaced.
type AdvisoryTier int

const (
	// TierNone means nothing should be shown: expiry is far off, already
	// past (the validity check handles that), or unknowable.
	TierNone AdvisoryTier = iota

	// TierWarning means expiry is inside the threshold window.
	TierWarning

	// TierDanger means expiry is a day or less away.
	TierDanger
)

// String returns a human-readable name for the tier.
func (t AdvisoryTier) String() string {
	switch t {
	case TierWarning:
		return "warning"
	case TierDanger:
		return "danger"
	default:
		return "none"
	}
}

// Advisory is a point-in-time expiry assessment.
type Advisory struct {
	Tier          AdvisoryTier
	DaysRemaining int
}

// Message renders the advisory for display. Empty for TierNone.
func (a Advisory) Message() string {
	switch a.Tier {
	case TierDanger:
		return "Sua sessão expira em menos de um dia. Faça login novamente para não perder o acesso."
	case TierWarning:
		if a.DaysRemaining == 1 {
			return "Sua sessão expira em 1 dia."
		}
		return fmt.Sprintf("Sua sessão expira em %d dias.", a.DaysRemaining)
	default:
		return ""
	}
}

// Evaluate assesses a credential's expiry at the given instant.
//
// Days remaining are counted by rounding up: 36 hours left is 2 days. An
// undecodable credential yields TierNone, as does one already expired; an
// expired credential's fate belongs to the validity check, not a banner.
func Evaluate(token string, threshold int, now time.Time) Advisory {
	if threshold <= 0 {
		threshold = DefaultWarnThresholdDays
	}

	expiresAt, ok := DecodeExpiry(token)
	if !ok {
		return Advisory{Tier: TierNone}
	}

	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return Advisory{Tier: TierNone}
	}

	days := int((remaining + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	switch {
	case days <= 1:
		return Advisory{Tier: TierDanger, DaysRemaining: days}
	case days <= threshold:
		return Advisory{Tier: TierWarning, DaysRemaining: days}
	default:
		return Advisory{Tier: TierNone, DaysRemaining: days}
	}
}

// AdvisoryTracker layers dismissal on top of Evaluate.
//
// Dismissal is sticky within a tier: once the user waves the banner away it
// stays away while the situation is unchanged, but an escalation (or any
// tier change) brings it back.
type AdvisoryTracker struct {
	mu        sync.Mutex
	threshold int
	dismissed bool
	lastTier  AdvisoryTier
}

// NewAdvisoryTracker creates a tracker with the given warning threshold in
// days. Zero or negative selects the default.
func NewAdvisoryTracker(threshold int) *AdvisoryTracker {
	if threshold <= 0 {
		threshold = DefaultWarnThresholdDays
	}
	return &AdvisoryTracker{threshold: threshold}
}

// SetThreshold replaces the warning threshold. Zero or negative selects the
// default. The next Current call evaluates against the new window; a
// standing dismissal survives only until the tier changes, as usual.
func (t *AdvisoryTracker) SetThreshold(threshold int) {
	if threshold <= 0 {
		threshold = DefaultWarnThresholdDays
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threshold = threshold
}

// Current evaluates the credential and applies dismissal. A tier change
// since the last call clears any standing dismissal first.
func (t *AdvisoryTracker) Current(token string, now time.Time) (Advisory, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	adv := Evaluate(token, t.threshold, now)
	if adv.Tier != t.lastTier {
		t.lastTier = adv.Tier
		t.dismissed = false
	}

	visible := adv.Tier != TierNone && !t.dismissed
	return adv, visible
}

// Dismiss hides the advisory until the tier next changes.
func (t *AdvisoryTracker) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dismissed = true
}

// Reset clears tracker memory, for a fresh session.
func (t *AdvisoryTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dismissed = false
	t.lastTier = TierNone
}
