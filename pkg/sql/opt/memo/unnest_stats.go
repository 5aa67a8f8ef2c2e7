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
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
)

// upperBoundRowCountForEstimation is the largest source row count for which
// an unnest is estimated. The length of the unnested collections is not
// modeled, so the estimate is only trusted when the error it can introduce
// is small.
const upperBoundRowCountForEstimation = 1

// unnestStats estimates an unnest over a source of at most one row. The
// output row count is the source row count. Replicated columns keep their
// statistics, every column unnested from a collection only inherits the
// average size of the collection column, and the ordinality column starts
// at 0 and is never null.
func unnestStats(n *plan.Unnest, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
	source := sc.Stats(n.Source)
	if rows := source.RowCount(); !rows.IsUnknown() && rows.Value() > upperBoundRowCountForEstimation {
		return nil, false
	}

	b := props.NewStatisticsBuilder().SetRowCount(source.RowCount())
	for _, sym := range n.ReplicateSymbols {
		b.AddColumn(sym, source.ColumnStatistics(sym))
	}
	for _, m := range n.UnnestSymbols {
		size := source.ColumnStatistics(m.Input).AverageRowSize
		for _, out := range m.Outputs {
			b.AddColumn(out, props.ColumnStatistics{AverageRowSize: size})
		}
	}
	if n.OrdinalitySymbol.Exists() {
		b.AddColumn(n.OrdinalitySymbol, props.ColumnStatistics{
			LowValue:      props.ZeroEstimate(),
			NullsFraction: props.ZeroEstimate(),
		})
	}
	return b.Build(), true
}
