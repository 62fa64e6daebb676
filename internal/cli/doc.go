// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the tradewatch command line surface.
//
// The default invocation launches the TUI; subcommands cover the
// non-interactive session operations (login, logout, status) plus
// config inspection, version and help.
package cli
