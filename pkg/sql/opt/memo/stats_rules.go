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
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
)

// bigintSize is the size in bytes of the values of generated id and row
// number columns.
const bigintSize = 8

// DefaultStatsRules returns one or more rules for every operator that can
// be estimated, in the order they are tried. Intersect, Except, Apply,
// SpatialJoin, IndexSource, TableWriter and Delete have no rule and are
// always estimated as unknown.
func DefaultStatsRules(tables TableStatsSource) []StatsRule {
	return []StatsRule{
		tableScanRule(tables),
		newRule("values", opt.ValuesOp, valuesStats),
		newRule("filter", opt.FilterOp, filterStats),
		newRule("project", opt.ProjectOp, projectStats),
		newRule("aggregation", opt.AggregationOp, aggregationStats),
		newRule("distinct-limit", opt.DistinctLimitOp, distinctLimitStats),
		newRule("unnest", opt.UnnestOp, unnestStats),
		newRule("join", opt.JoinOp, joinStats),
		newRule("semi-join", opt.SemiJoinOp, semiJoinStats),
		newRule("index-join", opt.IndexJoinOp, indexJoinStats),
		newRule("lateral-join", opt.LateralJoinOp, lateralJoinStats),
		newRule("union", opt.UnionOp, unionStats),
		newRule("exchange", opt.ExchangeOp, exchangeStats),
		newRule("limit", opt.LimitOp, limitStats),
		newRule("topn", opt.TopNOp, topNStats),
		newRule("sort", opt.SortOp, passThroughStats[*plan.Sort]),
		newRule("output", opt.OutputOp, passThroughStats[*plan.Output]),
		newRule("enforce-single-row", opt.EnforceSingleRowOp, enforceSingleRowStats),
		newRule("assign-unique-id", opt.AssignUniqueIDOp, assignUniqueIDStats),
		newRule("mark-distinct", opt.MarkDistinctOp, markDistinctStats),
		newRule("row-number", opt.RowNumberOp, rowNumberStats),
		newRule("topn-row-number", opt.TopNRowNumberOp, topNRowNumberStats),
		newRule("window", opt.WindowOp, passThroughStats[*plan.Window]),
		newRule("group-id", opt.GroupIDOp, groupIDStats),
		newRule("table-finish", opt.TableFinishOp, singleRowStats[*plan.TableFinish]),
		newRule("statistics-writer", opt.StatisticsWriterOp, singleRowStats[*plan.StatisticsWriter]),
		newRule("explain-analyze", opt.ExplainAnalyzeOp, singleRowStats[*plan.ExplainAnalyze]),
	}
}

// singleSource is implemented by the node types whose statistics are derived
// from those of their only child.
func singleSource(n plan.Node) plan.Node {
	return n.Children()[0]
}

// passThroughStats returns the statistics of the source. Columns the node
// adds are unknown.
func passThroughStats[T plan.Node](n T, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	return sc.Stats(singleSource(n)), true
}

// singleRowStats describes nodes that produce exactly one row summarizing
// their source, such as the row count of a write.
func singleRowStats[T plan.Node](n T, _ pattern.Captures, _ *StatsContext) (*props.Statistics, bool) {
	b := props.NewStatisticsBuilder().SetRowCount(props.MakeEstimate(1))
	for _, sym := range n.OutputSymbols() {
		b.AddColumn(sym, props.ColumnStatistics{
			DistinctValuesCount: props.MakeEstimate(1),
			NullsFraction:       props.ZeroEstimate(),
		})
	}
	return b.Build(), true
}

func valuesStats(n *plan.Values, _ pattern.Captures, _ *StatsContext) (*props.Statistics, bool) {
	b := props.NewStatisticsBuilder().SetRowCount(props.MakeEstimate(float64(len(n.Rows))))
	for i, sym := range n.Outputs {
		b.AddColumn(sym, valuesColumnStats(n.Rows, i))
	}
	return b.Build(), true
}

// valuesColumnStats computes the statistics of the i-th column of a list of
// rows. Only columns holding constants in every row can be described.
func valuesColumnStats(rows [][]scalar.Expr, i int) props.ColumnStatistics {
	if len(rows) == 0 {
		return props.ZeroColumnStatistics()
	}
	distinct := make(map[string]struct{})
	var nulls int
	numeric := true
	var low, high float64
	for _, row := range rows {
		if len(row) == 0 {
			return props.UnknownColumnStatistics()
		}
		c, ok := row[i].(*scalar.Constant)
		if !ok {
			return props.UnknownColumnStatistics()
		}
		if c.IsNull() {
			nulls++
			continue
		}
		f, isNum := c.Float()
		switch {
		case !isNum:
			numeric = false
		case len(distinct) == 0:
			low, high = f, f
		default:
			if f < low {
				low = f
			}
			if f > high {
				high = f
			}
		}
		distinct[c.String()] = struct{}{}
	}
	res := props.ColumnStatistics{
		DistinctValuesCount: props.MakeEstimate(float64(len(distinct))),
		NullsFraction:       props.MakeEstimate(float64(nulls) / float64(len(rows))),
	}
	if numeric && len(distinct) > 0 {
		res.LowValue = props.MakeEstimate(low)
		res.HighValue = props.MakeEstimate(high)
	}
	return res
}

func projectStats(n *plan.Project, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	b := props.NewStatisticsBuilder().SetRowCount(source.RowCount())
	for _, a := range n.Assignments {
		b.AddColumn(a.Symbol, projectedColumnStats(a.Expr, source))
	}
	return b.Build(), true
}

// projectedColumnStats estimates the statistics of a projected expression.
// Variables keep the statistics of the source column, constants are exact,
// and adding or subtracting a constant shifts the range of a column.
func projectedColumnStats(e scalar.Expr, source *props.Statistics) props.ColumnStatistics {
	switch t := e.(type) {
	case *scalar.Variable:
		return source.ColumnStatistics(t.Symbol)

	case *scalar.Constant:
		return constantStats(t)

	case *scalar.Call:
		if (t.Name != scalar.Add && t.Name != scalar.Subtract) || len(t.Args) != 2 {
			break
		}
		if v, ok := t.Args[0].(*scalar.Variable); ok {
			if c, ok := t.Args[1].(*scalar.Constant); ok {
				if delta, ok := c.Float(); ok {
					if t.Name == scalar.Subtract {
						delta = -delta
					}
					return shiftRange(source.ColumnStatistics(v.Symbol), delta, false)
				}
			}
		}
		if c, ok := t.Args[0].(*scalar.Constant); ok {
			if v, ok := t.Args[1].(*scalar.Variable); ok {
				if delta, ok := c.Float(); ok {
					return shiftRange(source.ColumnStatistics(v.Symbol), delta, t.Name == scalar.Subtract)
				}
			}
		}
	}
	return props.UnknownColumnStatistics()
}

func constantStats(c *scalar.Constant) props.ColumnStatistics {
	if c.IsNull() {
		return props.ZeroColumnStatistics()
	}
	res := props.ColumnStatistics{
		DistinctValuesCount: props.MakeEstimate(1),
		NullsFraction:       props.ZeroEstimate(),
	}
	if f, ok := c.Float(); ok {
		res.LowValue = props.MakeEstimate(f)
		res.HighValue = props.MakeEstimate(f)
	}
	return res
}

// shiftRange returns the statistics of x+delta, or of delta-x if negate is
// set. Distinct count and nulls are unchanged.
func shiftRange(c props.ColumnStatistics, delta float64, negate bool) props.ColumnStatistics {
	low, high := c.LowValue, c.HighValue
	if negate {
		neg := func(f float64) float64 { return -f }
		low, high = high.Map(neg), low.Map(neg)
	}
	shift := func(f float64) float64 { return f + delta }
	c.LowValue, c.HighValue = low.Map(shift), high.Map(shift)
	return c
}

// limitRowCount returns the row count of a source truncated to limit rows.
// When the source row count is unknown the limit itself is the estimate.
func limitRowCount(rows props.Estimate, limit int64) props.Estimate {
	l := props.MakeEstimate(float64(limit))
	if rows.IsUnknown() {
		return l
	}
	return rows.Min(l)
}

func limitStats(n *plan.Limit, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	return source.ToBuilder().SetRowCount(limitRowCount(source.RowCount(), n.Count)).Build(), true
}

func topNStats(n *plan.TopN, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	return source.ToBuilder().SetRowCount(limitRowCount(source.RowCount(), n.Count)).Build(), true
}

func enforceSingleRowStats(
	n *plan.EnforceSingleRow, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	return sc.Stats(n.Source).ToBuilder().SetRowCount(props.MakeEstimate(1)).Build(), true
}

func assignUniqueIDStats(
	n *plan.AssignUniqueID, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	return source.ToBuilder().AddColumn(n.IDSymbol, props.ColumnStatistics{
		DistinctValuesCount: source.RowCount(),
		NullsFraction:       props.ZeroEstimate(),
		AverageRowSize:      props.MakeEstimate(bigintSize),
	}).Build(), true
}

func markDistinctStats(
	n *plan.MarkDistinct, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	return sc.Stats(n.Source).ToBuilder().AddColumn(n.MarkerSymbol, props.ColumnStatistics{
		DistinctValuesCount: props.MakeEstimate(2),
		NullsFraction:       props.ZeroEstimate(),
		AverageRowSize:      props.MakeEstimate(1),
	}).Build(), true
}

// partitionCount estimates the number of distinct combinations of the given
// symbols, counting the null group of every nullable symbol.
func partitionCount(source *props.Statistics, syms opt.SymbolList) props.Estimate {
	count := props.MakeEstimate(1)
	for _, sym := range syms {
		c := source.ColumnStatistics(sym)
		count = count.Multiply(c.DistinctValuesCount.Add(nullGroup(c)))
	}
	return count
}

// nullGroup returns 0 if the column is known to have no nulls and 1
// otherwise: the nulls of a column form one extra group.
func nullGroup(c props.ColumnStatistics) props.Estimate {
	if !c.NullsFraction.IsUnknown() && c.NullsFraction.Value() == 0 {
		return props.ZeroEstimate()
	}
	return props.MakeEstimate(1)
}

// rowNumberStats caps the source rows at the per-partition limit, if any,
// and describes the row number column.
func rowNumberStats(n *plan.RowNumber, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	if !n.MaxRowCountPerPartition.Valid {
		return source.ToBuilder().AddColumn(n.RowNumberSymbol, rowNumberColumn(props.UnknownEstimate())).Build(), true
	}
	return cappedPartitionStats(source, n.PartitionBy, n.MaxRowCountPerPartition.Count, n.RowNumberSymbol), true
}

func topNRowNumberStats(
	n *plan.TopNRowNumber, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	return cappedPartitionStats(source, n.Specification.PartitionBy, n.MaxRowCountPerPartition, n.RowNumberSymbol), true
}

func cappedPartitionStats(
	source *props.Statistics, partitionBy opt.SymbolList, maxPerPartition int64, rowNumber opt.Symbol,
) *props.Statistics {
	limit := props.MakeEstimate(float64(maxPerPartition))
	rows := source.RowCount().Min(partitionCount(source, partitionBy).Multiply(limit))
	b := source.ToBuilder().SetRowCount(rows)
	if rowNumber.Exists() {
		b.AddColumn(rowNumber, rowNumberColumn(limit))
	}
	return b.Build()
}

func rowNumberColumn(limit props.Estimate) props.ColumnStatistics {
	return props.ColumnStatistics{
		DistinctValuesCount: limit,
		NullsFraction:       props.ZeroEstimate(),
		LowValue:            props.MakeEstimate(1),
		HighValue:           limit,
		AverageRowSize:      props.MakeEstimate(bigintSize),
	}
}

// groupIDStats replicates the source once per grouping set. Grouping columns
// are null in the copies for the sets that do not contain them.
func groupIDStats(n *plan.GroupID, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	sets := float64(len(n.GroupingSets))
	if sets == 0 {
		return nil, false
	}
	b := props.NewStatisticsBuilder().SetRowCount(source.RowCount().Multiply(props.MakeEstimate(sets)))
	for _, sym := range n.DistinctGroupingSetSymbols() {
		input, ok := n.GroupingColumnInput(sym)
		if !ok {
			input = sym
		}
		var in float64
		for _, set := range n.GroupingSets {
			if set.Contains(sym) {
				in++
			}
		}
		nullCopies := (sets - in) / sets
		b.AddColumn(sym, source.ColumnStatistics(input).MapNullsFraction(func(f float64) float64 {
			return nullCopies + f*in/sets
		}))
	}
	for _, sym := range n.AggregationArguments {
		b.AddColumn(sym, source.ColumnStatistics(sym))
	}
	if n.GroupIDSymbol.Exists() {
		b.AddColumn(n.GroupIDSymbol, props.ColumnStatistics{
			DistinctValuesCount: props.MakeEstimate(sets),
			NullsFraction:       props.ZeroEstimate(),
			LowValue:            props.ZeroEstimate(),
			HighValue:           props.MakeEstimate(sets - 1),
			AverageRowSize:      props.MakeEstimate(bigintSize),
		})
	}
	return b.Build(), true
}
