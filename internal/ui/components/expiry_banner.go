// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable TUI building blocks for tradewatch.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mvbarbosa/tradewatch-tui/internal/auth"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/styles"
)

// =============================================================================
// SESSION EXPIRY BANNER
// =============================================================================

// ExpiryBanner renders the session expiry advisory at the top of the
// dashboard. Warning tier is dismissible; the tracker decides when a
// dismissed banner comes back.
type ExpiryBanner struct {
	advisory auth.Advisory
	visible  bool
	width    int
}

// NewExpiryBanner creates an empty, hidden banner.
func NewExpiryBanner() ExpiryBanner {
	return ExpiryBanner{}
}

// SetWidth sets the render width.
func (b *ExpiryBanner) SetWidth(width int) {
	b.width = width
}

// SetAdvisory updates what the banner shows.
func (b *ExpiryBanner) SetAdvisory(advisory auth.Advisory, visible bool) {
	b.advisory = advisory
	b.visible = visible
}

// Visible reports whether the banner currently renders anything.
func (b *ExpiryBanner) Visible() bool {
	return b.visible && b.advisory.Tier != auth.TierNone
}

// View renders the banner, or an empty string when hidden.
func (b *ExpiryBanner) View() string {
	if !b.Visible() {
		return ""
	}

	var fg, bg lipgloss.AdaptiveColor
	indicator := styles.StatusIndicators.Warning
	hint := "  (d para dispensar)"

	switch b.advisory.Tier {
	case auth.TierDanger:
		fg = styles.TextInverse
		bg = styles.Rose
		indicator = styles.StatusIndicators.Error
		hint = ""
	default:
		fg = styles.TextInverse
		bg = styles.Amber
	}

	style := lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Bold(true).
		Padding(0, 1)
	if b.width > 0 {
		style = style.Width(b.width)
	}

	return style.Render(indicator + " " + b.advisory.Message() + hint)
}
