// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package fusion

import "github.com/tomtom215/skylapse/internal/models"

// BracketSet is one contiguous run of not-yet-fused bracket captures
// belonging to the same burst step.
type BracketSet struct {
	Captures []models.Capture
}

// GroupBracketSets scans captures -- ordered by timestamp, as
// ledger.GetCaptures returns them -- for contiguous runs of un-fused
// bracket frames. A new set starts at every BracketIndex 0, mirroring the
// orchestrator's per-burst bracket numbering; a non-bracket capture or a
// capture that already has an HDRResultID breaks the run without joining
// it. Only sets of two or more frames are returned, since a lone frame
// needs no fusion.
func GroupBracketSets(captures []models.Capture) []BracketSet {
	var sets []BracketSet
	var current []models.Capture

	flush := func() {
		if len(current) >= 2 {
			sets = append(sets, BracketSet{Captures: current})
		}
		current = nil
	}

	for _, c := range captures {
		if !c.IsBracket || c.HDRResultID != "" {
			flush()
			continue
		}
		if c.BracketIndex == 0 {
			flush()
		}
		current = append(current, c)
	}
	flush()
	return sets
}
