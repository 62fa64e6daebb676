// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Title is the screen title bar style.
	Title = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		Padding(0, 1)

	// Header is the section header style.
	Header = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	// Hint is the keybinding/help line style.
	Hint = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Box is the default bordered panel.
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	// FocusedBox is the bordered panel holding keyboard focus.
	FocusedBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan).
			Padding(0, 1)

	// TabActive is the selected dashboard tab.
	TabActive = lipgloss.NewStyle().
			Foreground(TextInverse).
			Background(Cyan).
			Bold(true).
			Padding(0, 2)

	// TabInactive is an unselected dashboard tab.
	TabInactive = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 2)

	// ErrorLine renders inline form/API errors.
	ErrorLine = lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true)
)

// =============================================================================
// TERMINAL CAPABILITIES
// =============================================================================

// ApplyTheme forces the lipgloss background detection to match the
// configured theme. "auto" leaves termenv's detection alone.
func ApplyTheme(theme string) {
	switch theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
}

// ColorProfile reports the active terminal color capability.
func ColorProfile() termenv.Profile {
	return termenv.ColorProfile()
}

// ConfigureColor pins the render profile for the process. Plain output is
// used when color was declined or stdout is not a terminal; otherwise the
// detected capability stands.
func ConfigureColor(noColor bool, stdoutTTY bool) {
	if noColor || !stdoutTTY {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(ColorProfile())
}
