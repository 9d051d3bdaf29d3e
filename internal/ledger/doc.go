// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ledger is Skylapse's single source of truth for sessions,
// captures, and rendered timelapses. It wraps an embedded DuckDB file and
// exposes the small set of transactional operations the scheduler,
// orchestrator, and timelapse worker need: idempotent session lookup,
// append-only capture recording with running light-metering aggregates,
// was_active bookkeeping for window-end detection, and timelapse result
// recording and lookup.
//
// Every write that touches more than one row happens inside a single
// *sql.Tx so a crash mid-write can never leave a session's aggregates out
// of sync with its capture rows.
package ledger
