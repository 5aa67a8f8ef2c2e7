// Copyright 2024 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package memo

import (
	"math"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
)

func joinStats(n *plan.Join, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	left, right := sc.Stats(n.Left), sc.Stats(n.Right)
	inner, driving := estimateInnerJoin(left, right, n.Criteria)
	// The join filter only decides which pairs match. Rows of a preserved side
	// losing their matches to it are still returned, padded with nulls.
	if n.Filter != nil {
		filtered, ok := estimateFilter(inner, n.Filter)
		if !ok {
			filtered = unestimatedFilter(inner, sc)
		}
		inner = filtered
	}
	return addOuterRows(n.Type, inner, left, right, driving), true
}

func indexJoinStats(n *plan.IndexJoin, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	criteria := make([]plan.EquiJoinClause, len(n.Criteria))
	for i, c := range n.Criteria {
		criteria[i] = plan.EquiJoinClause{Left: c.Probe, Right: c.Index}
	}
	left, right := sc.Stats(n.ProbeSource), sc.Stats(n.IndexSource)
	inner, driving := estimateInnerJoin(left, right, criteria)
	return addOuterRows(n.Type, inner, left, right, driving), true
}

// estimateInnerJoin estimates the matching pairs of a join on the given
// equality clauses. Without clauses it is a cross join. The selectivity is
// taken from the most selective clause alone, since the clauses of a join
// are usually correlated. The clause it was taken from is returned, or nil.
func estimateInnerJoin(
	left, right *props.Statistics, criteria []plan.EquiJoinClause,
) (*props.Statistics, *plan.EquiJoinClause) {
	cross := left.RowCount().Multiply(right.RowCount())
	b := props.NewStatisticsBuilder()
	for _, sym := range left.Symbols() {
		b.AddColumn(sym, left.ColumnStatistics(sym))
	}
	for _, sym := range right.Symbols() {
		b.AddColumn(sym, right.ColumnStatistics(sym))
	}

	inner := cross
	var drivingClause *plan.EquiJoinClause
	if len(criteria) > 0 {
		var best props.Estimate
		for i := range criteria {
			c := &criteria[i]
			sel := equiJoinSelectivity(left.ColumnStatistics(c.Left), right.ColumnStatistics(c.Right))
			if sel.IsUnknown() {
				continue
			}
			if best.IsUnknown() || sel.Value() < best.Value() {
				best, drivingClause = sel, c
			}
		}
		inner = cross.Multiply(best)
		for _, c := range criteria {
			joined := joinedColumn(left.ColumnStatistics(c.Left), right.ColumnStatistics(c.Right))
			b.AddColumn(c.Left, joined)
			b.AddColumn(c.Right, joined)
		}
	}
	return b.SetRowCount(inner).Build(), drivingClause
}

// addOuterRows adds the unmatched rows of the preserved side(s) of an outer
// join, padded with nulls, to the estimated matches.
func addOuterRows(
	typ plan.JoinType, matches, left, right *props.Statistics, c *plan.EquiJoinClause,
) *props.Statistics {
	switch typ {
	case plan.LeftJoin:
		return addUnmatched(matches, left, right, leftComplement(matches, left, right, c))
	case plan.RightJoin:
		return addUnmatched(matches, right, left, rightComplement(matches, left, right, c))
	case plan.FullJoin:
		withLeft := addUnmatched(matches, left, right, leftComplement(matches, left, right, c))
		return addUnmatched(withLeft, right, left, rightComplement(matches, left, right, c))
	}
	return matches
}

func leftComplement(matches, left, right *props.Statistics, c *plan.EquiJoinClause) props.Estimate {
	if c == nil {
		return unmatchedRows(matches, left, right, nil, props.ColumnStatistics{})
	}
	return unmatchedRows(matches, left, right, &c.Left, right.ColumnStatistics(c.Right))
}

func rightComplement(matches, left, right *props.Statistics, c *plan.EquiJoinClause) props.Estimate {
	if c == nil {
		return unmatchedRows(matches, right, left, nil, props.ColumnStatistics{})
	}
	return unmatchedRows(matches, right, left, &c.Right, left.ColumnStatistics(c.Left))
}

// unmatchedRows estimates the rows of the preserved side without a match on
// the other side. Rows with a null key never match. Of the non-null keys, the
// fraction of distinct values exceeding the distinct values of the other
// side is assumed to find no match. A cross join, with no key, matches every
// row unless the other side is empty. Since every matching pair holds at
// most one preserved row, at least the preserved rows in excess of the
// matches are unmatched.
func unmatchedRows(
	matches, preserved, other *props.Statistics, key *opt.Symbol, otherKey props.ColumnStatistics,
) props.Estimate {
	rows := preserved.RowCount()
	excess := rows.Subtract(matches.RowCount()).Map(func(v float64) float64 { return math.Max(v, 0) })
	byKey := unmatchedByKey(rows, other.RowCount(), preserved, key, otherKey)
	return byKey.Max(excess)
}

func unmatchedByKey(
	rows, otherRows props.Estimate,
	preserved *props.Statistics,
	key *opt.Symbol,
	otherKey props.ColumnStatistics,
) props.Estimate {
	if key == nil {
		if otherRows.IsUnknown() {
			return props.UnknownEstimate()
		}
		if otherRows.Value() == 0 {
			return rows
		}
		return props.ZeroEstimate()
	}
	c := preserved.ColumnStatistics(*key)
	if c.DistinctValuesCount.IsUnknown() || otherKey.DistinctValuesCount.IsUnknown() {
		return props.UnknownEstimate()
	}
	ndv, otherNDV := c.DistinctValuesCount.Value(), otherKey.DistinctValuesCount.Value()
	nulls := rows.Multiply(c.NullsFraction)
	if ndv <= otherNDV || ndv == 0 {
		return nulls
	}
	unmatchedFraction := props.MakeEstimate((ndv - otherNDV) / ndv)
	return nulls.Add(rows.Multiply(c.NonNullFraction()).Multiply(unmatchedFraction))
}

// addUnmatched adds unmatched rows of the preserved side to the statistics
// of a join. The columns of the padded side become null in those rows.
func addUnmatched(
	joined, preserved, padded *props.Statistics, unmatched props.Estimate,
) *props.Statistics {
	rows := joined.RowCount().Add(unmatched)
	b := joined.ToBuilder().SetRowCount(rows)
	for _, sym := range preserved.Symbols() {
		// The unmatched rows keep their values, so the preserved columns are
		// described at least as well by the input.
		c := joined.ColumnStatistics(sym)
		in := preserved.ColumnStatistics(sym)
		c.DistinctValuesCount = c.DistinctValuesCount.Max(in.DistinctValuesCount)
		c.NullsFraction = in.NullsFraction
		c.LowValue, c.HighValue = in.LowValue, in.HighValue
		b.AddColumn(sym, c)
	}
	for _, sym := range padded.Symbols() {
		c := joined.ColumnStatistics(sym)
		matchedNulls := joined.RowCount().Multiply(c.NullsFraction)
		c.NullsFraction = matchedNulls.Add(unmatched).Divide(rows)
		b.AddColumn(sym, c)
	}
	return b.Build()
}

// semiJoinStats keeps every source row and adds the boolean match marker.
func semiJoinStats(n *plan.SemiJoin, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	return source.ToBuilder().AddColumn(n.SemiJoinOutput, props.ColumnStatistics{
		DistinctValuesCount: props.MakeEstimate(2),
		NullsFraction:       source.ColumnStatistics(n.SourceJoinSymbol).NullsFraction,
		AverageRowSize:      props.MakeEstimate(1),
	}).Build(), true
}

// lateralJoinStats estimates a lateral join whose subquery produces exactly
// one row per input row.
func lateralJoinStats(
	n *plan.LateralJoin, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	if !plan.IsScalar(n.Subquery, sc.Lookup) {
		return nil, false
	}
	input, sub := sc.Stats(n.Input), sc.Stats(n.Subquery)
	b := input.ToBuilder()
	for _, sym := range sub.Symbols() {
		b.AddColumn(sym, sub.ColumnStatistics(sym))
	}
	return b.Build(), true
}
