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
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
)

// filterStats estimates the rows of the source satisfying the predicate.
// Predicates that cannot be estimated leave the row count unknown, unless
// the session enables a default filter factor.
func filterStats(n *plan.Filter, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	if res, ok := estimateFilter(source, n.Predicate); ok {
		return res, true
	}
	return unestimatedFilter(source, sc), true
}

// unestimatedFilter returns the statistics of a filter with an unknown
// selectivity.
func unestimatedFilter(source *props.Statistics, sc *StatsContext) *props.Statistics {
	if sc.Session.DefaultFilterFactorEnabled {
		factor := props.MakeEstimate(sc.Session.DefaultFilterFactor)
		return source.ToBuilder().SetRowCount(source.RowCount().Multiply(factor)).Build()
	}
	return source.ToBuilder().SetRowCount(props.UnknownEstimate()).Build()
}

// estimateFilter returns the statistics of the rows of in satisfying pred.
// It returns false if the selectivity of the predicate cannot be estimated.
func estimateFilter(in *props.Statistics, pred scalar.Expr) (*props.Statistics, bool) {
	switch e := pred.(type) {
	case *scalar.Constant:
		if e.IsNull() || e.Value == false {
			return withSelectivity(in, props.ZeroEstimate()), true
		}
		if e.Value == true {
			return in, true
		}

	case *scalar.Call:
		switch e.Name {
		case scalar.And:
			res := in
			for _, arg := range e.Args {
				var ok bool
				if res, ok = estimateFilter(res, arg); !ok {
					return nil, false
				}
			}
			return res, true

		case scalar.Or:
			if len(e.Args) != 2 {
				break
			}
			left, ok := estimateFilter(in, e.Args[0])
			if !ok {
				return nil, false
			}
			right, ok := estimateFilter(in, e.Args[1])
			if !ok {
				return nil, false
			}
			// Assume the two sides are independent.
			both := left.RowCount().Multiply(right.RowCount()).Divide(in.RowCount())
			if in.RowCount().Equals(props.ZeroEstimate()) {
				both = props.ZeroEstimate()
			}
			rows := left.RowCount().Add(right.RowCount()).Subtract(both)
			if rows.IsUnknown() {
				return nil, false
			}
			return in.ToBuilder().SetRowCount(rows).Build(), true

		case scalar.Not:
			if len(e.Args) != 1 {
				break
			}
			inner, ok := estimateFilter(in, e.Args[0])
			if !ok {
				return nil, false
			}
			rows := in.RowCount().Subtract(inner.RowCount())
			if rows.IsUnknown() {
				return nil, false
			}
			return in.ToBuilder().SetRowCount(rows.Max(props.ZeroEstimate())).Build(), true

		case scalar.IsNull, scalar.IsNotNull:
			if len(e.Args) != 1 {
				break
			}
			v, ok := e.Args[0].(*scalar.Variable)
			if !ok {
				break
			}
			return estimateNullTest(in, v.Symbol, e.Name == scalar.IsNull)

		case scalar.Eq, scalar.Ne, scalar.Lt, scalar.Le, scalar.Gt, scalar.Ge:
			if len(e.Args) != 2 {
				break
			}
			return estimateComparison(in, e.Name, e.Args[0], e.Args[1])
		}
	}
	return nil, false
}

// withSelectivity scales the row count of in by sel and replaces the
// statistics of the given columns.
func withSelectivity(
	in *props.Statistics, sel props.Estimate, cols ...columnUpdate,
) *props.Statistics {
	b := in.ToBuilder().SetRowCount(in.RowCount().Multiply(sel))
	for _, c := range cols {
		b.AddColumn(c.sym, c.stats)
	}
	return b.Build()
}

type columnUpdate struct {
	sym   opt.Symbol
	stats props.ColumnStatistics
}

func estimateNullTest(in *props.Statistics, sym opt.Symbol, isNull bool) (*props.Statistics, bool) {
	c := in.ColumnStatistics(sym)
	if c.NullsFraction.IsUnknown() {
		return nil, false
	}
	if isNull {
		return withSelectivity(in, c.NullsFraction, columnUpdate{sym, props.ZeroColumnStatistics()}), true
	}
	sel := c.NonNullFraction()
	c.NullsFraction = props.ZeroEstimate()
	return withSelectivity(in, sel, columnUpdate{sym, c}), true
}

// flipComparison returns the operator op' such that (a op b) == (b op' a).
func flipComparison(op string) string {
	switch op {
	case scalar.Lt:
		return scalar.Gt
	case scalar.Le:
		return scalar.Ge
	case scalar.Gt:
		return scalar.Lt
	case scalar.Ge:
		return scalar.Le
	}
	return op
}

func estimateComparison(
	in *props.Statistics, op string, left, right scalar.Expr,
) (*props.Statistics, bool) {
	switch l := left.(type) {
	case *scalar.Variable:
		switch r := right.(type) {
		case *scalar.Constant:
			return compareToConstant(in, op, l.Symbol, r)
		case *scalar.Variable:
			if op == scalar.Eq {
				return compareSymbols(in, l.Symbol, r.Symbol)
			}
		}
	case *scalar.Constant:
		if r, ok := right.(*scalar.Variable); ok {
			return compareToConstant(in, flipComparison(op), r.Symbol, l)
		}
	}
	return nil, false
}

func compareToConstant(
	in *props.Statistics, op string, sym opt.Symbol, c *scalar.Constant,
) (*props.Statistics, bool) {
	if c.IsNull() {
		// A comparison with null is never true.
		return withSelectivity(in, props.ZeroEstimate()), true
	}
	col := in.ColumnStatistics(sym)
	nonNull := col.NonNullFraction()
	val, numeric := c.Float()
	res := col
	res.NullsFraction = props.ZeroEstimate()

	var sel props.Estimate
	switch op {
	case scalar.Eq:
		if numeric && outsideRange(col, val) {
			return withSelectivity(in, props.ZeroEstimate()), true
		}
		sel = nonNull.Divide(col.DistinctValuesCount)
		res.DistinctValuesCount = props.MakeEstimate(1)
		if numeric {
			res.LowValue, res.HighValue = props.MakeEstimate(val), props.MakeEstimate(val)
		}

	case scalar.Ne:
		one := props.MakeEstimate(1)
		sel = nonNull.Multiply(one.Subtract(one.Divide(col.DistinctValuesCount)))
		res.DistinctValuesCount = col.DistinctValuesCount.Subtract(one).Max(one)

	default:
		if !numeric || col.LowValue.IsUnknown() || col.HighValue.IsUnknown() {
			return nil, false
		}
		frac := rangeFraction(col.LowValue.Value(), col.HighValue.Value(), val, op)
		sel = nonNull.Multiply(props.MakeEstimate(frac))
		res.DistinctValuesCount = col.DistinctValuesCount.Multiply(props.MakeEstimate(frac))
		if op == scalar.Lt || op == scalar.Le {
			res.HighValue = col.HighValue.Min(props.MakeEstimate(val))
		} else {
			res.LowValue = col.LowValue.Max(props.MakeEstimate(val))
		}
	}
	if sel.IsUnknown() {
		return nil, false
	}
	return withSelectivity(in, sel, columnUpdate{sym, res}), true
}

func outsideRange(c props.ColumnStatistics, val float64) bool {
	return (!c.LowValue.IsUnknown() && val < c.LowValue.Value()) ||
		(!c.HighValue.IsUnknown() && val > c.HighValue.Value())
}

// rangeFraction returns the fraction of [low, high] satisfying "x op val",
// assuming a uniform distribution.
func rangeFraction(low, high, val float64, op string) float64 {
	if high == low {
		var ok bool
		switch op {
		case scalar.Lt:
			ok = low < val
		case scalar.Le:
			ok = low <= val
		case scalar.Gt:
			ok = low > val
		case scalar.Ge:
			ok = low >= val
		}
		if ok {
			return 1
		}
		return 0
	}
	var frac float64
	if op == scalar.Lt || op == scalar.Le {
		frac = (val - low) / (high - low)
	} else {
		frac = (high - val) / (high - low)
	}
	return math.Max(0, math.Min(1, frac))
}

// compareSymbols estimates an equality between two columns of the same
// relation. Matching values are drawn from the smaller of the two domains.
func compareSymbols(in *props.Statistics, a, b opt.Symbol) (*props.Statistics, bool) {
	ca, cb := in.ColumnStatistics(a), in.ColumnStatistics(b)
	sel := equiJoinSelectivity(ca, cb)
	if sel.IsUnknown() {
		return nil, false
	}
	res := joinedColumn(ca, cb)
	return withSelectivity(in, sel, columnUpdate{a, res}, columnUpdate{b, res}), true
}

// equiJoinSelectivity is the fraction of pairs of values of the two columns
// that are equal: both must be non-null and, assuming the smaller domain is
// contained in the larger, 1/max(distinct) of those pairs match.
func equiJoinSelectivity(a, b props.ColumnStatistics) props.Estimate {
	maxDistinct := a.DistinctValuesCount.Max(b.DistinctValuesCount)
	return a.NonNullFraction().Multiply(b.NonNullFraction()).Divide(maxDistinct)
}

// joinedColumn returns the statistics of either column after an equality
// between them.
func joinedColumn(a, b props.ColumnStatistics) props.ColumnStatistics {
	res := props.ColumnStatistics{
		DistinctValuesCount: a.DistinctValuesCount.Min(b.DistinctValuesCount),
		NullsFraction:       props.ZeroEstimate(),
		LowValue:            a.LowValue,
		HighValue:           a.HighValue,
		AverageRowSize:      a.AverageRowSize,
	}
	if !b.LowValue.IsUnknown() {
		res.LowValue = b.LowValue.Max(a.LowValue)
		if a.LowValue.IsUnknown() {
			res.LowValue = b.LowValue
		}
	}
	if !b.HighValue.IsUnknown() {
		res.HighValue = b.HighValue.Min(a.HighValue)
		if a.HighValue.IsUnknown() {
			res.HighValue = b.HighValue
		}
	}
	return res
}
