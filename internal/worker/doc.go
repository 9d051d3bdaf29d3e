// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker implements the timelapse render pipeline that turns one
// finished session's captures into a rendered video: load the frame list,
// fuse any not-yet-fused bracket sets into HDR frames, compose the filter
// chain, encode via a concat-demuxer invocation, extract a thumbnail, and
// record the result. It consumes jobs handed off by internal/scheduler
// through a durable internal/queue backend, any number of worker processes
// at once -- per-(profile,date,schedule,quality_tier) exclusivity comes
// from the idempotency check in Process, not from locking.
package worker
