// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fusion groups a bracket set's captures by timestamp and merges
// each group into one HDR frame via Mertens exposure fusion. The worker
// depends only on the Fuser interface; MertensFuser is the default
// implementation, shelling out to an external fusion binary the way
// internal/encode shells out to ffmpeg.
package fusion
