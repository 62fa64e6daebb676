// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the client for the trading backend's protected endpoints:
// watched stocks, the portfolio, sales and transaction history, and
// per-stock technical analysis.
//
// Every request carries the session credential as a Bearer header. A 401
// from any endpoint means the credential is no longer honored; the client
// reports it to the session layer through the unauthorized hook so the
// whole app logs out in one place.
package api
