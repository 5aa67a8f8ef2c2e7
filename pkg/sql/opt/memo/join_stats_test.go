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

package memo_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/memo"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/stretchr/testify/require"
)

// uniformStats describes rows distinct non-null values in [1, rows].
func uniformStats(sym opt.Symbol, rows float64) *props.Statistics {
	b := props.NewStatisticsBuilder().SetRowCount(props.MakeEstimate(rows))
	if rows > 0 {
		b.AddColumn(sym, props.ColumnStatistics{
			DistinctValuesCount: props.MakeEstimate(rows),
			NullsFraction:       props.ZeroEstimate(),
			LowValue:            props.MakeEstimate(1),
			HighValue:           props.MakeEstimate(rows),
		})
	} else {
		b.AddColumn(sym, props.ZeroColumnStatistics())
	}
	return b.Build()
}

func TestOuterJoinFilter(t *testing.T) {
	calc := memo.DefaultStatsCalculator(nil, nil)
	provider := fixedProvider{1: uniformStats("a", 100), 2: uniformStats("e", 100)}
	join := func(typ plan.JoinType, criteria []plan.EquiJoinClause, filter string) *plan.Join {
		j := &plan.Join{
			ID:       3,
			Type:     typ,
			Left:     scanOf(1, "a"),
			Right:    scanOf(2, "e"),
			Criteria: criteria,
			Outputs:  opt.SymbolList{"a", "e"},
		}
		if filter != "" {
			j.Filter = scalar.MustParse(filter)
		}
		return j
	}
	onA := []plan.EquiJoinClause{{Left: "a", Right: "e"}}

	testCases := []struct {
		name     string
		typ      plan.JoinType
		criteria []plan.EquiJoinClause
		filter   string
		rows     float64
	}{
		{name: "inner-unsatisfiable", typ: plan.InnerJoin, criteria: onA, filter: "(gt e 1000)", rows: 0},
		{name: "left-equi", typ: plan.LeftJoin, criteria: onA, rows: 100},
		{name: "left-unsatisfiable", typ: plan.LeftJoin, criteria: onA, filter: "(gt e 1000)", rows: 100},
		{name: "left-cross-unsatisfiable", typ: plan.LeftJoin, filter: "(gt e 1000)", rows: 100},
		{name: "right-unsatisfiable", typ: plan.RightJoin, criteria: onA, filter: "(gt a 1000)", rows: 100},
		{name: "full-unsatisfiable", typ: plan.FullJoin, criteria: onA, filter: "(gt e 1000)", rows: 200},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stats, ok := calc.Calculate(
				context.Background(), join(tc.typ, tc.criteria, tc.filter), provider, nil, nil, nil,
			)
			require.True(t, ok)
			require.InDelta(t, tc.rows, stats.RowCount().Value(), 1e-9)
		})
	}

	// The preserved rows that lost their match are padded with nulls.
	stats, _ := calc.Calculate(
		context.Background(), join(plan.LeftJoin, onA, "(gt e 1000)"), provider, nil, nil, nil,
	)
	require.Equal(t, 1.0, stats.ColumnStatistics("e").NullsFraction.Value())
	require.Equal(t, 0.0, stats.ColumnStatistics("a").NullsFraction.Value())
	require.Equal(t, 100.0, stats.ColumnStatistics("a").DistinctValuesCount.Value())
}

func TestLeftCrossJoinWithEmptySide(t *testing.T) {
	calc := memo.DefaultStatsCalculator(nil, nil)
	provider := fixedProvider{1: uniformStats("a", 100), 2: uniformStats("e", 0)}
	j := &plan.Join{
		ID: 3, Type: plan.LeftJoin, Left: scanOf(1, "a"), Right: scanOf(2, "e"),
		Outputs: opt.SymbolList{"a", "e"},
	}
	stats, ok := calc.Calculate(context.Background(), j, provider, nil, nil, nil)
	require.True(t, ok)
	require.Equal(t, 100.0, stats.RowCount().Value())
	require.Equal(t, 1.0, stats.ColumnStatistics("e").NullsFraction.Value())
}
