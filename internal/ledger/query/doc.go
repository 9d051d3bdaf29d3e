// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package query provides SQL query building utilities for the ledger package.
//
// WhereBuilder gives a fluent interface for constructing parameterized WHERE
// clauses so filter queries (timelapse listings, capture history) never
// concatenate caller-supplied values into SQL text.
//
//	wb := query.NewWhereBuilder()
//	wb.AddDateRange("captured_at", filter.Since, filter.Until)
//	wb.AddProfiles([]string{"a", "b"})
//	whereClause, args := wb.Build()
//	// "captured_at >= ? AND captured_at <= ? AND profile_id IN (?, ?)"
package query
