// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty WhereBuilder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE clause fragment with its bound arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddDateRange filters rows whose date column falls within [since, until].
// A nil bound is skipped, so callers can supply either, both, or neither.
func (wb *WhereBuilder) AddDateRange(column string, since, until *time.Time) *WhereBuilder {
	if since != nil {
		wb.clauses = append(wb.clauses, fmt.Sprintf("%s >= ?", column))
		wb.args = append(wb.args, *since)
	}
	if until != nil {
		wb.clauses = append(wb.clauses, fmt.Sprintf("%s <= ?", column))
		wb.args = append(wb.args, *until)
	}
	return wb
}

// AddProfiles filters by profile_id using an IN clause. An empty slice is a
// no-op, matching every profile.
func (wb *WhereBuilder) AddProfiles(profileIDs []string) *WhereBuilder {
	return wb.addInClause("profile_id", profileIDs)
}

// AddSchedules filters by schedule_name using an IN clause.
func (wb *WhereBuilder) AddSchedules(scheduleNames []string) *WhereBuilder {
	return wb.addInClause("schedule_name", scheduleNames)
}

// AddQualityTiers filters by quality_tier using an IN clause.
func (wb *WhereBuilder) AddQualityTiers(tiers []string) *WhereBuilder {
	return wb.addInClause("quality_tier", tiers)
}

func (wb *WhereBuilder) addInClause(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// Build returns the joined WHERE condition (without the WHERE keyword) and
// its bound arguments in order. An empty builder returns "1=1" so it can
// always be interpolated safely.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix is Build with a leading "WHERE " for direct interpolation.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	clause, args := wb.Build()
	return "WHERE " + clause, args
}

// IsEmpty reports whether no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
