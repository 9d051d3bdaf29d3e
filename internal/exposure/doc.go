// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package exposure computes one capture's full CaptureSettings from a
// profile, the current ambient light, and (optionally) the trailing
// history of recent captures in the owning session.
//
// Every exported function here is pure or depends only on the small
// Meterer/SmoothingHistory interfaces, so the exposure curve, the
// white-balance curve, temporal smoothing, and bracket-set generation are
// all exhaustively table-tested without a camera or a database. Plan
// itself never returns an error: a metering failure degrades to a
// solar-altitude lux estimate, and a history-read failure degrades to
// skipping smoothing for that frame, but a CaptureSettings is always
// produced.
package exposure
