// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package exposure

// bracketOffsets maps a requested bracket frame count to the nearest
// supported count (1, 3, or 5) and its EV offset table, centered on zero.
func bracketOffsets(requested int) (count int, offsets []float64) {
	switch {
	case requested <= 1:
		return 1, []float64{0}
	case requested <= 3:
		return 3, []float64{-1, 0, 1}
	default:
		return 5, []float64{-2, -1, 0, 1, 2}
	}
}
