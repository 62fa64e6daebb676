// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the tradewatch application.
package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		input    string
		maxWidth int
		want     string
	}{
		{"PETR4", 10, "PETR4"},
		{"PETROBRAS PN", 8, "PETRO..."},
		{"", 5, ""},
		{"ABC", 0, ""},
		{"ABCDEF", 3, "ABC"},
	}

	for _, tc := range tests {
		got := TruncateWidth(tc.input, tc.maxWidth)
		if got != tc.want {
			t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.maxWidth, got, tc.want)
		}
	}
}

func TestTruncateWidth_WideRunes(t *testing.T) {
	// Double-width characters must never exceed the column budget.
	got := TruncateWidth("日本語のテキスト", 6)
	if StringWidth(got) > 6 {
		t.Errorf("TruncateWidth produced width %d, want <= 6", StringWidth(got))
	}
}

func TestPadRight(t *testing.T) {
	got := PadRight("AB", 5)
	if StringWidth(got) != 5 {
		t.Errorf("PadRight width = %d, want 5", StringWidth(got))
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatMoney(t *testing.T) {
	if got := FormatMoney(1234.5); got != "R$ 1234.50" {
		t.Errorf("FormatMoney(1234.5) = %q", got)
	}
	if got := FormatMoney(-3.141); got != "R$ -3.14" {
		t.Errorf("FormatMoney(-3.141) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{3.25, "+3.25%"},
		{-1.8, "-1.80%"},
		{0, "0.00%"},
	}
	for _, tc := range tests {
		if got := FormatPercent(tc.input); got != tc.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "state.json")

	if err := AtomicWriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("content = %q, want %q", data, "first")
	}

	// Overwrite must replace content completely.
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content after overwrite = %q, want %q", data, "second")
	}

	// No temp files should remain.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no leftover temp files)", len(entries))
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")

	if err := AtomicWriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}
