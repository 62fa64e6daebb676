// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/mvbarbosa/tradewatch-tui/internal/auth"
)

func TestExpiryBannerHiddenByDefault(t *testing.T) {
	banner := NewExpiryBanner()
	if banner.Visible() {
		t.Error("new banner should be hidden")
	}
	if banner.View() != "" {
		t.Error("hidden banner should render nothing")
	}
}

func TestExpiryBannerWarning(t *testing.T) {
	banner := NewExpiryBanner()
	banner.SetAdvisory(auth.Advisory{Tier: auth.TierWarning, DaysRemaining: 5}, true)

	view := banner.View()
	if view == "" {
		t.Fatal("warning banner should render")
	}
	if !strings.Contains(view, "5 dias") {
		t.Errorf("banner missing day count: %q", view)
	}
	if !strings.Contains(view, "dispensar") {
		t.Error("warning banner should offer dismissal")
	}
}

func TestExpiryBannerDangerNotDismissible(t *testing.T) {
	banner := NewExpiryBanner()
	banner.SetAdvisory(auth.Advisory{Tier: auth.TierDanger, DaysRemaining: 1}, true)

	view := banner.View()
	if view == "" {
		t.Fatal("danger banner should render")
	}
	if strings.Contains(view, "dispensar") {
		t.Error("danger banner must not offer dismissal")
	}
}

func TestExpiryBannerRespectsVisibility(t *testing.T) {
	banner := NewExpiryBanner()
	banner.SetAdvisory(auth.Advisory{Tier: auth.TierWarning, DaysRemaining: 5}, false)

	if banner.Visible() {
		t.Error("dismissed banner should be hidden")
	}
}

func TestStatusBarUnauthenticated(t *testing.T) {
	bar := NewStatusBar("localhost:8000")
	view := bar.View()
	if !strings.Contains(view, "não autenticado") {
		t.Errorf("unauthenticated bar = %q", view)
	}
}

func TestStatusBarExpiryLabel(t *testing.T) {
	bar := NewStatusBar("localhost:8000")
	bar.SetSession("ana@example.com", time.Now().Add(3*24*time.Hour+time.Minute), true)

	view := bar.View()
	if !strings.Contains(view, "ana@example.com") {
		t.Errorf("bar missing email: %q", view)
	}
	if !strings.Contains(view, "expira em 3d") {
		t.Errorf("bar missing expiry label: %q", view)
	}
}
