// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the tradewatch application.
//
// This package contains common helper functions used throughout the client
// for display formatting, string truncation, and crash-safe file writing.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth: display-width aware truncation for table cells
//
// Formatting:
//   - FormatMoney, FormatPercent: numeric formatting for trading views
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
