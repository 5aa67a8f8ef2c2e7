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

// aggregationStats estimates an aggregation with a single grouping set.
//
// Every grouping key keeps the statistics of the source column, except that
// all of its nulls collapse into a single group: the nulls fraction becomes 0
// if the source had no nulls, and 1/(distinct+1) otherwise. The number of
// groups is the product over the keys of the distinct count, plus one for
// keys with nulls, and never exceeds the source row count. Aggregate results
// are unknown.
//
// A global aggregation, with no keys, produces exactly one row. Multiple
// grouping sets are not estimated.
func aggregationStats(
	n *plan.Aggregation, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	if n.GroupingSets.SetCount() != 1 {
		return nil, false
	}
	if len(n.GroupingSets.Keys) == 0 {
		b := props.NewStatisticsBuilder().SetRowCount(props.MakeEstimate(1))
		for _, sym := range n.AggregationSymbols() {
			b.AddColumn(sym, props.UnknownColumnStatistics())
		}
		return b.Build(), true
	}

	source := sc.Stats(n.Source)
	b := groupingStats(source, n.GroupingSets.Keys)
	for _, sym := range n.AggregationSymbols() {
		b.AddColumn(sym, props.UnknownColumnStatistics())
	}
	return b.Build(), true
}

// groupingStats returns a builder holding the statistics of the distinct
// combinations of keys in source.
func groupingStats(source *props.Statistics, keys opt.SymbolList) *props.StatisticsBuilder {
	b := props.NewStatisticsBuilder()
	for _, key := range keys {
		c := source.ColumnStatistics(key)
		// An unknown distinct count yields NaN, which maps to unknown.
		distinct := c.DistinctValuesCount.ValueOr(math.NaN())
		b.AddColumn(key, c.MapNullsFraction(func(nullsFraction float64) float64 {
			if nullsFraction == 0 {
				return 0
			}
			return 1 / (distinct + 1)
		}))
	}
	return b.SetRowCount(partitionCount(source, keys).Min(source.RowCount()))
}

// distinctLimitStats estimates the distinct combinations of the distinct
// symbols, truncated to the limit.
func distinctLimitStats(
	n *plan.DistinctLimit, _ pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	b := groupingStats(sc.Stats(n.Source), n.DistinctSymbols)
	rows := b.RowCount()
	if rows.IsUnknown() {
		rows = props.MakeEstimate(float64(n.Limit))
	} else {
		rows = rows.Min(props.MakeEstimate(float64(n.Limit)))
	}
	return b.SetRowCount(rows).Build(), true
}
