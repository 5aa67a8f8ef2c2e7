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
)

func unionStats(n *plan.Union, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	return concatStats(sc, n.Sources, n.Outputs(), n.SourceInputs), true
}

// exchangeStats estimates an exchange as the concatenation of its sources.
// Redistribution does not change the rows; only replication to every
// consumer does, and that is accounted for by the consumers.
func exchangeStats(n *plan.Exchange, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	if len(n.Inputs) != len(n.Sources) {
		return nil, false
	}
	return concatStats(sc, n.Sources, n.PartitioningScheme.OutputLayout, func(i int) opt.SymbolList {
		return n.Inputs[i]
	}), true
}

// concatStats estimates the concatenation of the rows of the sources. inputs
// returns, for the i-th source, the symbols feeding the outputs in order.
//
// Row counts add up. The distinct count of an output is the largest distinct
// count of its inputs, its nulls fraction and size are averaged weighted by
// the rows of every source, and its range covers the ranges of all inputs.
func concatStats(
	sc *StatsContext, sources []plan.Node, outputs opt.SymbolList, inputs func(i int) opt.SymbolList,
) *props.Statistics {
	stats := make([]*props.Statistics, len(sources))
	rows := props.ZeroEstimate()
	for i, s := range sources {
		stats[i] = sc.Stats(s)
		rows = rows.Add(stats[i].RowCount())
	}

	b := props.NewStatisticsBuilder().SetRowCount(rows)
	for j, out := range outputs {
		var res props.ColumnStatistics
		var nulls, size props.Estimate
		for i := range sources {
			in := inputs(i)
			if j >= len(in) {
				return props.UnknownStatistics(outputs)
			}
			c := stats[i].ColumnStatistics(in[j])
			srcRows := stats[i].RowCount()
			if i == 0 {
				res = c
				nulls = srcRows.Multiply(c.NullsFraction)
				size = srcRows.Multiply(c.AverageRowSize)
				continue
			}
			res.DistinctValuesCount = res.DistinctValuesCount.Max(c.DistinctValuesCount)
			res.LowValue = res.LowValue.Min(c.LowValue)
			res.HighValue = res.HighValue.Max(c.HighValue)
			nulls = nulls.Add(srcRows.Multiply(c.NullsFraction))
			size = size.Add(srcRows.Multiply(c.AverageRowSize))
		}
		if len(sources) > 1 {
			res.NullsFraction = nulls.Divide(rows)
			res.AverageRowSize = size.Divide(rows)
		}
		b.AddColumn(out, res)
	}
	return b.Build()
}
