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
	"time"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/types"
	"github.com/cockroachdb/optcore/pkg/util/log"
)

var tableStatsErrorEvery = log.Every(time.Minute)

// tableScanRule converts the connector statistics of the scanned table. It
// declines when statistics are disabled for the session, in which case the
// scan and everything derived from it is unknown.
func tableScanRule(tables TableStatsSource) StatsRule {
	return newRule("table-scan", opt.TableScanOp,
		func(n *plan.TableScan, _ pattern.Captures, sc *StatsContext) (*props.Statistics, bool) {
			if tables == nil || !sc.Session.OptimizerUseStatistics {
				return nil, false
			}
			columns := make([]plan.ColumnHandle, 0, len(n.Outputs))
			for _, sym := range n.Outputs {
				if h, ok := n.Assignments[sym]; ok {
					columns = append(columns, h)
				}
			}
			ts, err := tables.TableStatistics(sc.Ctx, n.Table, columns)
			if err == nil {
				err = ts.Validate()
			}
			if err != nil {
				if tableStatsErrorEvery.ShouldLog() {
					log.Warningf(sc.Ctx, "ignoring statistics of table %s: %v", n.Table, err)
				}
				return nil, false
			}

			b := props.NewStatisticsBuilder().SetRowCount(ts.RowCount)
			for _, sym := range n.Outputs {
				h, ok := n.Assignments[sym]
				if !ok {
					b.AddColumn(sym, props.UnknownColumnStatistics())
					continue
				}
				cs, ok := ts.Columns[string(h)]
				if !ok {
					b.AddColumn(sym, props.UnknownColumnStatistics())
					continue
				}
				b.AddColumn(sym, tableColumnStats(cs, ts.RowCount, sc.TypeOf(sym)))
			}
			return b.Build(), true
		})
}

// tableColumnStats converts the statistics of one table column. Native
// min/max values are projected onto float64 according to the column type,
// and the average size is the data size spread over the non-null rows.
func tableColumnStats(
	cs props.TableColumnStatistics, rowCount props.Estimate, typ *types.T,
) props.ColumnStatistics {
	res := props.ColumnStatistics{
		DistinctValuesCount: cs.DistinctValuesCount,
		NullsFraction:       cs.NullsFraction,
	}
	if low, ok := types.StatsRepresentation(typ, cs.Min); ok {
		res.LowValue = props.MakeEstimate(low)
	}
	if high, ok := types.StatsRepresentation(typ, cs.Max); ok {
		res.HighValue = props.MakeEstimate(high)
	}
	nonNullRows := rowCount.Multiply(res.NonNullFraction())
	res.AverageRowSize = cs.DataSize.Divide(nonNullRows)
	return res
}
