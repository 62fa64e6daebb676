// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the authenticated session against the trading API.
//
// It owns the full credential lifecycle: acquiring a bearer token at login,
// persisting it across restarts, periodically revalidating it against the
// backend, warning the user ahead of expiry, and tearing the session down
// on logout or rejection.
//
// # Components
//
//   - State: the single source of truth for {profile, token, initializing}.
//     The profile/token pair is set and cleared atomically; the rest of the
//     application only ever observes a fully-authenticated or a fully-empty
//     session.
//   - Store: durable persistence for the pair (SQLite, token sealed at rest).
//   - Gateway: the network operations that mutate State (login, register,
//     validity check, logout) plus base-address resolution.
//   - Scheduler: coordinates the startup, interval, and wake revalidation
//     triggers so at most one check is in flight and every negative outcome
//     converges on a single logout.
//   - Advisory: derives the days-until-expiry warning from the token's own
//     claim segment, without contacting the server.
//
// # Failure policy
//
// Transient network failure never destroys a session: a validity check that
// cannot reach the backend reports an indeterminate outcome and the session
// stays up. Only an explicit 401 from the backend, or the user logging out,
// clears it. Corrupt persisted state is wiped and treated as "no session"
// rather than surfaced as an error.
package auth
