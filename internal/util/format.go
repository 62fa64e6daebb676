// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the tradewatch application.
package util

import "strconv"

// IntToString converts an int to string.
// Uses strconv.Itoa for optimal performance.
func IntToString(i int) string {
	return strconv.Itoa(i)
}

// FormatMoney formats a monetary value with two decimal places and the
// R$ currency prefix used across the trading views.
func FormatMoney(v float64) string {
	return "R$ " + strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatPercent formats a percentage with two decimal places and a sign
// for positive values, e.g. "+3.25%" / "-1.80%".
func FormatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if v > 0 {
		s = "+" + s
	}
	return s + "%"
}

// FormatQuantity formats a share quantity for display.
func FormatQuantity(q int) string {
	return strconv.Itoa(q)
}
