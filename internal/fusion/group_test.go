// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package fusion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/skylapse/internal/fusion"
	"github.com/tomtom215/skylapse/internal/models"
)

func TestGroupBracketSets_GroupsContiguousBracketRuns(t *testing.T) {
	captures := []models.Capture{
		{ID: "1", IsBracket: true, BracketIndex: 0},
		{ID: "2", IsBracket: true, BracketIndex: 1},
		{ID: "3", IsBracket: true, BracketIndex: 2},
		{ID: "4", IsBracket: false},
		{ID: "5", IsBracket: true, BracketIndex: 0},
		{ID: "6", IsBracket: true, BracketIndex: 1},
	}

	sets := fusion.GroupBracketSets(captures)

	assert.Len(t, sets, 2)
	assert.Len(t, sets[0].Captures, 3)
	assert.Len(t, sets[1].Captures, 2)
}

func TestGroupBracketSets_SkipsAlreadyFusedCaptures(t *testing.T) {
	captures := []models.Capture{
		{ID: "1", IsBracket: true, BracketIndex: 0, HDRResultID: "hdr-1"},
		{ID: "2", IsBracket: true, BracketIndex: 1, HDRResultID: "hdr-1"},
	}
	assert.Empty(t, fusion.GroupBracketSets(captures))
}

func TestGroupBracketSets_DropsLoneFrames(t *testing.T) {
	captures := []models.Capture{
		{ID: "1", IsBracket: true, BracketIndex: 0},
		{ID: "2", IsBracket: false},
	}
	assert.Empty(t, fusion.GroupBracketSets(captures))
}

func TestGroupBracketSets_NoBracketsReturnsEmpty(t *testing.T) {
	captures := []models.Capture{
		{ID: "1", IsBracket: false},
		{ID: "2", IsBracket: false},
	}
	assert.Empty(t, fusion.GroupBracketSets(captures))
}
