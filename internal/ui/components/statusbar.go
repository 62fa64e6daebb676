// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mvbarbosa/tradewatch-tui/internal/ui/styles"
	"github.com/mvbarbosa/tradewatch-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the single-line footer: who is logged in, where the API
// lives, and how long the credential has left.
type StatusBar struct {
	width int

	email     string
	apiHost   string
	expiresAt time.Time
	hasExpiry bool
	checking  bool
}

// NewStatusBar creates an empty status bar.
func NewStatusBar(apiHost string) StatusBar {
	return StatusBar{apiHost: apiHost}
}

// SetWidth sets the render width.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// SetSession updates the logged-in identity. Zero expiresAt means the
// credential's expiry is unknown.
func (s *StatusBar) SetSession(email string, expiresAt time.Time, hasExpiry bool) {
	s.email = email
	s.expiresAt = expiresAt
	s.hasExpiry = hasExpiry
}

// SetChecking toggles the "verifying session" indicator.
func (s *StatusBar) SetChecking(checking bool) {
	s.checking = checking
}

// View renders the bar.
func (s *StatusBar) View() string {
	left := s.email
	if left == "" {
		left = "não autenticado"
	}
	if s.checking {
		left += "  [verificando]"
	}

	right := s.apiHost
	if s.hasExpiry {
		right = s.expiryLabel() + "  " + right
	}

	barStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Background(styles.SurfaceDim).
		Padding(0, 1)

	if s.width <= 0 {
		return barStyle.Render(left + "  " + right)
	}

	// Pad the middle so the right side hugs the edge.
	inner := s.width - 2
	gap := inner - util.StringWidth(left) - util.StringWidth(right)
	if gap < 2 {
		left = util.TruncateWidth(left, inner-util.StringWidth(right)-2)
		gap = 2
	}
	return barStyle.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

// expiryLabel summarizes the remaining credential lifetime.
func (s *StatusBar) expiryLabel() string {
	remaining := time.Until(s.expiresAt)
	switch {
	case remaining <= 0:
		return "sessão expirada"
	case remaining < time.Hour:
		return fmt.Sprintf("expira em %dmin", int(remaining.Minutes()))
	case remaining < 48*time.Hour:
		return fmt.Sprintf("expira em %dh", int(remaining.Hours()))
	default:
		return fmt.Sprintf("expira em %dd", int(remaining.Hours()/24))
	}
}
