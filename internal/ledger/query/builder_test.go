// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/skylapse/internal/ledger/query"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := query.NewWhereBuilder()
	clause, args := wb.Build()
	assert.Equal(t, "1=1", clause)
	assert.Empty(t, args)
	assert.True(t, wb.IsEmpty())
}

func TestWhereBuilder_DateRange(t *testing.T) {
	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	wb := query.NewWhereBuilder()
	wb.AddDateRange("date", &since, &until)
	clause, args := wb.Build()

	assert.Equal(t, "date >= ? AND date <= ?", clause)
	assert.Equal(t, []interface{}{since, until}, args)
}

func TestWhereBuilder_DateRange_PartialBounds(t *testing.T) {
	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	wb := query.NewWhereBuilder()
	wb.AddDateRange("date", &since, nil)
	clause, args := wb.Build()

	assert.Equal(t, "date >= ?", clause)
	assert.Len(t, args, 1)
}

func TestWhereBuilder_Profiles(t *testing.T) {
	wb := query.NewWhereBuilder()
	wb.AddProfiles([]string{"a", "b"})
	clause, args := wb.Build()

	assert.Equal(t, "profile_id IN (?, ?)", clause)
	assert.Equal(t, []interface{}{"a", "b"}, args)
}

func TestWhereBuilder_Profiles_EmptyIsNoop(t *testing.T) {
	wb := query.NewWhereBuilder()
	wb.AddProfiles(nil)
	assert.True(t, wb.IsEmpty())
}

func TestWhereBuilder_Combined(t *testing.T) {
	wb := query.NewWhereBuilder()
	wb.AddSchedules([]string{"sunrise"})
	wb.AddQualityTiers([]string{"archive"})
	clause, args := wb.BuildWithPrefix()

	assert.Equal(t, "WHERE schedule_name IN (?) AND quality_tier IN (?)", clause)
	assert.Equal(t, []interface{}{"sunrise", "archive"}, args)
}
